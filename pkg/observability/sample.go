package observability

import (
	"sort"
	"strconv"
	"strings"
)

// MetricSample is one exposition line of a registry snapshot.
type MetricSample struct {
	Name   string
	Labels map[string]string
	Value  float64
	Type   MetricType
}

// String renders the sample as `name{k="v",...} value` with labels sorted by key.
func (s MetricSample) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if len(s.Labels) > 0 {
		keys := make([]string, 0, len(s.Labels))
		for k := range s.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteString(`="`)
			b.WriteString(escapeLabelValue(s.Labels[k]))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(FormatValue(s.Value))
	return b.String()
}

func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)

func escapeLabelValue(v string) string {
	return labelValueEscaper.Replace(v)
}
