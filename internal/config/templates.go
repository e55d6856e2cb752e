package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	case "server":
		return serverTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `address = "127.0.0.1:5555"
connect_timeout = "5s"
read_timeout = "5s"
write_timeout = "5s"
quiet_period = "250ms"
# legacy replies only
max_response_bytes = 10000
# framed replies; keep at or above the server's max_request_bytes
max_frame_bytes = 2097152
# framed | legacy
response_mode = "framed"
# little | big | native
order = "little"
# legacy | fielded
layout = "legacy"
read_welcome = true
# password = ""
`

const serverTemplate = `listen = "127.0.0.1:5555"
# empty generates a random password that is never logged; set one to log in
password = ""
response_mode = "framed"
order = "little"
layout = "legacy"
max_request_bytes = 1048576
max_images = 100
seed_defaults = true
idle_timeout = "5m"
write_timeout = "15s"
# empty disables the Prometheus endpoint
metrics_addr = ""
`
