package capture

import (
	"errors"
	"net"
	"os"
	"sort"
	"strings"
)

// ErrNoInterface means no capture interface could be guessed.
var ErrNoInterface = errors.New("unable to identify a likely capture interface; pass one explicitly")

// GuessInterface picks the capture interface when none was configured.
func GuessInterface() (string, []string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", nil, err
	}
	names := make([]string, 0, len(ifaces))
	for _, iface := range ifaces {
		names = append(names, iface.Name)
	}
	name, err := PickInterface(names)
	return name, names, err
}

// PickInterface returns the first name, in sorted order, beginning with "e".
func PickInterface(names []string) (string, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		if strings.HasPrefix(name, "e") {
			return name, nil
		}
	}
	return "", ErrNoInterface
}

// Privileged reports whether the process can open capture devices.
func Privileged() bool {
	return os.Geteuid() == 0
}
