// Package log configures the logrus output shared by all census_runner commands.
package log

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is used for every log line
const TimestampFormat = "2006-01-02 15:04:05.000"

// fieldOrder lists the fields printed first, in this order, when present
var fieldOrder = map[string]int{
	"sync_id":     1,
	"sync_run_id": 2,
	"status":      3,
	"result":      4,
}

// NewFormatter returns a text formatter with full timestamps and the sync
// identifiers leading every entry
func NewFormatter(noColors bool) logrus.Formatter {
	return &logrus.TextFormatter{
		DisableColors:    noColors,
		FullTimestamp:    true,
		TimestampFormat:  TimestampFormat,
		QuoteEmptyFields: true,
		SortingFunc:      sortFields,
	}
}

// sortFields keeps the built-in time/level/msg keys first, then the known
// identifiers, then everything else alphabetically
func sortFields(keys []string) {
	rank := func(k string) int {
		switch k {
		case logrus.FieldKeyTime:
			return -3
		case logrus.FieldKeyLevel:
			return -2
		case logrus.FieldKeyMsg:
			return -1
		}
		if r, ok := fieldOrder[k]; ok {
			return r
		}
		return len(fieldOrder) + 1
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
}
