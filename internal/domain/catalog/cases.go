package catalog

import (
	"slices"
	"strings"

	"detective_lab/internal/domain/model"
)

var serverLog = []string{
	"2026-02-11 23:58:02 login ok user=ops from 10.0.0.5",
	"2026-02-12 00:41:17 sudo user=ops cmd=/usr/bin/backup",
	"2026-02-12 01:05:44 login fail user=root from 203.0.77.14",
	"2026-02-12 01:06:02 login fail user=root from 203.0.77.14",
	"2026-02-12 01:59:30 login ok user=vlang from 203.0.77.14",
	"2026-02-12 02:14:09 scp /srv/evidence.db user=vlang to 203.0.77.14",
}

var connections = []string{
	"10.0.0.5",
	"192.168.1.20",
	"203.0.77.14",
	"8.8.8.8",
	"77.88.55.60",
	"172.16.4.2",
}

var aliases = map[string]string{
	"ghost":     "Victor Lang",
	"courier":   "Mara Stein",
	"archivist": "Ivo Petrov",
}

var events = [][]string{
	{"time", "actor", "action"},
	{"01:05", "root", "login_fail"},
	{"01:06", "root", "login_fail"},
	{"01:59", "vlang", "login"},
	{"02:03", "ops", "backup"},
	{"02:14", "vlang", "scp"},
	{"02:20", "vlang", "logout"},
}

var custody = map[string]string{
	"usb-7":           "locker-3",
	"locker-3":        "evidence-bag-12",
	"evidence-bag-12": "Archive Room",
}

// Default returns the built-in case sequence. Each case requires the one before it.
func Default() *Catalog {
	c, err := New(Chain(defaultCases()))
	if err != nil {
		panic("catalog: built-in cases are invalid: " + err.Error())
	}
	return c
}

func defaultCases() []model.Case {
	return []model.Case{
		{
			Title:       "Log Triage",
			Description: "The night shift flagged the server log. Someone copied the evidence database out shortly after two in the morning.",
			Concept:     "slicing",
			Dataset:     model.Dataset{Name: "log", Kind: model.DatasetSequence, Value: serverLog},
			Task:        "Store the last five log entries, in order, in a variable named evidence.",
			Predicate: model.Predicate{
				Params: []model.Param{{Name: "evidence", Type: model.ParamList}},
				Check: func(args model.Args) bool {
					evidence, ok := args.Strings("evidence")
					if !ok || len(evidence) != 5 {
						return false
					}
					return slices.Equal(evidence, serverLog[len(serverLog)-5:]) &&
						strings.Contains(evidence[len(evidence)-1], "02:14")
				},
			},
		},
		{
			Title:       "Suspicious Connections",
			Description: "Firewall captured every address that talked to the server that night. The attacker's network has 77 in its address.",
			Concept:     "loops",
			Dataset:     model.Dataset{Name: "connections", Kind: model.DatasetSequence, Value: connections},
			Task:        "Loop over connections and collect every address containing \"77.\" in a list named suspects.",
			Predicate: model.Predicate{
				Params: []model.Param{{Name: "suspects", Type: model.ParamList}},
				Check: func(args model.Args) bool {
					suspects, ok := args.Strings("suspects")
					if !ok || len(suspects) == 0 {
						return false
					}
					for _, ip := range suspects {
						if !strings.Contains(ip, "77.") || !slices.Contains(connections, ip) {
							return false
						}
					}
					return true
				},
			},
		},
		{
			Title:       "Alias Board",
			Description: "The login belonged to someone who signs messages as \"ghost\". The alias board maps code names to real names.",
			Concept:     "dictionaries",
			Dataset:     model.Dataset{Name: "aliases", Kind: model.DatasetMapping, Value: aliases},
			Task:        "Look up the real name behind the alias ghost and store it in culprit.",
			Predicate: model.Predicate{
				Params: []model.Param{{Name: "culprit", Type: model.ParamString}},
				Check: func(args model.Args) bool {
					culprit, ok := args.String("culprit")
					return ok && culprit == aliases["ghost"]
				},
			},
		},
		{
			Title:       "Access Timeline",
			Description: "The access table lists every action per actor. The first row is a header.",
			Concept:     "functions",
			Dataset:     model.Dataset{Name: "events", Kind: model.DatasetTable, Value: events},
			Task:        "Write a function that counts the rows for a given actor, call it for vlang and store the result in visits.",
			Predicate: model.Predicate{
				Params: []model.Param{{Name: "visits", Type: model.ParamNumber}},
				Check: func(args model.Args) bool {
					visits, ok := args.Int("visits")
					return ok && visits == countActor(events, "vlang")
				},
			},
		},
		{
			Title:       "Chain of Custody",
			Description: "Every holder of the stolen drive recorded who handed it over. Follow the chain back to where it started.",
			Concept:     "recursion",
			Dataset:     model.Dataset{Name: "custody", Kind: model.DatasetMapping, Value: custody},
			Task:        "Starting at usb-7, follow custody until a holder has no previous holder, and store that holder in origin.",
			Predicate: model.Predicate{
				Params: []model.Param{{Name: "origin", Type: model.ParamString}},
				Check: func(args model.Args) bool {
					origin, ok := args.String("origin")
					return ok && origin == chainOrigin(custody, "usb-7")
				},
			},
		},
	}
}

func countActor(table [][]string, actor string) int {
	n := 0
	for _, row := range table[1:] {
		if len(row) > 1 && row[1] == actor {
			n++
		}
	}
	return n
}

func chainOrigin(chain map[string]string, start string) string {
	seen := map[string]bool{}
	cur := start
	for !seen[cur] {
		seen[cur] = true
		prev, ok := chain[cur]
		if !ok {
			return cur
		}
		cur = prev
	}
	return cur
}
