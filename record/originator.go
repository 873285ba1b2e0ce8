package record

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/subosito/gotenv"
)

// Originator describes the application and process a record stems from.
// In server operation every remote client contributes its own originator;
// locally there is exactly one, stable for the process lifetime.
type Originator struct {
	ProcessID   uint32
	ProcessName string
	AppID       uint32
	AppName     string
	HostName    string
	IPAddress   string
	env         map[string]string
}

// NewOriginator creates an originator from externally collected process and
// host metadata. The environment snapshot is taken from the given map.
func NewOriginator(pid uint32, procName string, appID uint32, appName,
	hostName, ipAddr string, env map[string]string) *Originator {
	e := make(map[string]string, len(env))
	for k, v := range env {
		e[k] = v
	}
	return &Originator{
		ProcessID:   pid,
		ProcessName: procName,
		AppID:       appID,
		AppName:     appName,
		HostName:    hostName,
		IPAddress:   ipAddr,
		env:         e,
	}
}

// LocalOriginator captures the calling process. Host name and IP address
// collection are the caller's concern; empty values are allowed.
func LocalOriginator(appID uint32, appName string) *Originator {
	host, _ := os.Hostname()
	name := filepath.Base(os.Args[0])
	name = strings.TrimSuffix(name, filepath.Ext(name))
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	if appName == "" {
		appName = name
	}
	return &Originator{
		ProcessID:   uint32(os.Getpid()),
		ProcessName: name,
		AppID:       appID,
		AppName:     appName,
		HostName:    host,
		env:         env,
	}
}

// EnvValue returns the value of an environment variable from the snapshot
// taken at creation time.
func (o *Originator) EnvValue(name string) (string, bool) {
	v, ok := o.env[name]
	return v, ok
}

// LoadEnvFile merges variables from a dotenv style file into the environment
// snapshot. Variables already present keep their captured value.
func (o *Originator) LoadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	vars, err := gotenv.StrictParse(f)
	if err != nil {
		return err
	}
	for k, v := range vars {
		if _, exists := o.env[k]; !exists {
			o.env[k] = v
		}
	}
	return nil
}

// AppendSerialized appends the originator in wire form to buf.
func (o *Originator) AppendSerialized(buf []byte) []byte {
	buf = strconv.AppendUint(buf, uint64(o.ProcessID), 10)
	buf = append(buf, fieldSep)
	buf = append(buf, o.ProcessName...)
	buf = append(buf, fieldSep)
	buf = strconv.AppendUint(buf, uint64(o.AppID), 10)
	buf = append(buf, fieldSep)
	buf = append(buf, o.AppName...)
	buf = append(buf, fieldSep)
	buf = append(buf, o.HostName...)
	buf = append(buf, fieldSep)
	buf = append(buf, o.IPAddress...)
	buf = append(buf, '\n')
	return buf
}

// ParseOriginator parses an originator in wire form. The environment
// snapshot is not part of the wire form and starts out empty.
func ParseOriginator(b []byte) (*Originator, error) {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	parts := bytes.SplitN(b, []byte{fieldSep}, 6)
	if len(parts) != 6 {
		return nil, errors.New("malformed serialized originator")
	}
	pid, err := strconv.ParseUint(string(parts[0]), 10, 32)
	if err != nil {
		return nil, errors.New("malformed process id")
	}
	appID, err := strconv.ParseUint(string(parts[2]), 10, 32)
	if err != nil {
		return nil, errors.New("malformed application id")
	}
	return &Originator{
		ProcessID:   uint32(pid),
		ProcessName: string(parts[1]),
		AppID:       uint32(appID),
		AppName:     string(parts[3]),
		HostName:    string(parts[4]),
		IPAddress:   string(parts[5]),
		env:         map[string]string{},
	}, nil
}
