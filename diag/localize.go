package diag

import (
	_ "embed"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v2"
)

//go:embed messages.yaml
var bundledMessages []byte

var (
	tableOnce sync.Once
	table     map[string]string
)

func messageTable() map[string]string {
	tableOnce.Do(func() {
		table = map[string]string{}
		// The bundled table is authored with the library; a parse failure
		// degrades to raw id rendering.
		_ = yaml.Unmarshal(bundledMessages, &table)
	})
	return table
}

// LoadMessages replaces entries of the message table, allowing applications
// to install another localization at startup.
func LoadMessages(data []byte) error {
	extra := map[string]string{}
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return err
	}
	t := messageTable()
	for k, v := range extra {
		t[k] = v
	}
	return nil
}

// Localize renders the template registered for id. Each %s placeholder
// consumes one argument in order; extra arguments are ignored, missing
// arguments render as empty strings. An unknown id renders as the id with
// its arguments in parentheses.
func Localize(id string, args ...string) string {
	tmpl, ok := messageTable()[id]
	if !ok {
		if len(args) == 0 {
			return id
		}
		return id + "(" + strings.Join(args, ", ") + ")"
	}
	var sb strings.Builder
	argIdx := 0
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] == '%' && i+1 < len(tmpl) {
			switch tmpl[i+1] {
			case 's':
				if argIdx < len(args) {
					sb.WriteString(args[argIdx])
				}
				argIdx++
				i++
				continue
			case '%':
				sb.WriteByte('%')
				i++
				continue
			}
		}
		sb.WriteByte(tmpl[i])
	}
	return sb.String()
}
