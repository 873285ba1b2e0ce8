package config

import (
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/coaly-project/coaly/diag"
	"github.com/coaly-project/coaly/toml"
)

// ServerProperties configure the trace server variant of the inventory.
// The section is optional; a nil value selects standalone operation.
type ServerProperties struct {
	Name           string   `mapstructure:"name"`
	ListenAddress  string   `mapstructure:"listen_address"`
	Port           int      `mapstructure:"port"`
	MaxConnections int      `mapstructure:"max_connections"`
	MaxMsgSize     int      `mapstructure:"max_msg_size"`
	KeepTimeout    int      `mapstructure:"keep_timeout"`
	AppIDs         []uint32 `mapstructure:"app_ids"`
}

// DefaultServerProperties returns the defaults applied to an empty
// [server] table.
func DefaultServerProperties() *ServerProperties {
	return &ServerProperties{
		ListenAddress:  "localhost",
		Port:           3690,
		MaxConnections: 20,
		MaxMsgSize:     64 * 1024,
		KeepTimeout:    300,
	}
}

// AdmitsApp reports whether records of the given application id are
// accepted. An empty list admits every application.
func (sp *ServerProperties) AdmitsApp(appID uint32) bool {
	if len(sp.AppIDs) == 0 {
		return true
	}
	for _, id := range sp.AppIDs {
		if id == appID {
			return true
		}
	}
	return false
}

// readServer decodes the [server] table. The table is free of the per-field
// diagnostics the rest of the configuration needs, so it decodes through a
// weakly typed map.
func readServer(item *toml.Item, msgs *diag.Messages) *ServerProperties {
	props := DefaultServerProperties()
	if !item.IsTable() {
		*msgs = append(*msgs, diag.NewWarning("W-Cfg-TypeMismatch",
			strconv.Itoa(item.LineNr()), "server", "table"))
		return props
	}
	raw := plainValue(item)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           props,
		WeaklyTypedInput: true,
	})
	if err == nil {
		err = dec.Decode(raw)
	}
	if err != nil {
		*msgs = append(*msgs, diag.NewWarning("W-Cfg-InvalidServerPar", "server", err.Error()))
		return DefaultServerProperties()
	}
	if props.Port < 1 || props.Port > 65535 {
		*msgs = append(*msgs, diag.NewWarning("W-Cfg-ValueOutOfRange",
			strconv.Itoa(item.LineNr()), strconv.Itoa(props.Port), "port", "1", "65535"))
		props.Port = DefaultServerProperties().Port
	}
	if props.MaxConnections < 1 {
		props.MaxConnections = DefaultServerProperties().MaxConnections
	}
	if props.MaxMsgSize < 1024 {
		props.MaxMsgSize = DefaultServerProperties().MaxMsgSize
	}
	return props
}

// plainValue projects a document item onto plain Go values for decoding.
func plainValue(item *toml.Item) interface{} {
	switch {
	case item.IsTable():
		m := map[string]interface{}{}
		for _, k := range item.Keys() {
			c, _ := item.Child(k)
			m[k] = plainValue(c)
		}
		return m
	case item.IsArray(), item.IsTableArray():
		var l []interface{}
		for _, e := range item.Items() {
			l = append(l, plainValue(e))
		}
		return l
	default:
		if s, ok := item.AsString(); ok {
			return s
		}
		if i, ok := item.AsInt(); ok {
			return i
		}
		if f, ok := item.AsFloat(); ok {
			return f
		}
		if b, ok := item.AsBool(); ok {
			return b
		}
		t, _ := item.AsTime()
		return t
	}
}
