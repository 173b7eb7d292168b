package config

import "github.com/torosent/canary/internal/model"

// DefaultRunSet names the transports tested when none are selected.
var DefaultRunSet = []string{"shadow", "Replicant"}

// DefaultCatalog returns the built-in transports.
func DefaultCatalog() []model.TransportSpec {
	return []model.TransportSpec{
		{Name: "obfs2", ListenPort: "4567"},
		{Name: "obfs4", ListenPort: "1234", OptionsFile: "Configs/obfs4.json"},
		{Name: "obfs4iatMode", ListenPort: "1234", OptionsFile: "Configs/obfs4iatMode.json", DispatcherName: "obfs4"},
		{Name: "shadow", ListenPort: "2345", OptionsFile: "Configs/shadowsocks.json"},
		{Name: "Replicant", ListenPort: "3456", OptionsFile: "Configs/ReplicantClientConfig.json"},
		{Name: "meeklite", ListenPort: "443", OptionsFile: "Configs/meek.json"},
	}
}

// DefaultWebTargets returns the built-in reachability targets.
func DefaultWebTargets() []model.WebTarget {
	return []model.WebTarget{
		{Name: "facebook", URL: "https://www.facebook.com/", Port: "443"},
		{Name: "cnn", URL: "https://www.cnn.com/", Port: "443"},
		{Name: "wikipedia", URL: "https://www.wikipedia.org/", Port: "443"},
		{Name: "14ymedio", URL: "https://www.14ymedio.com", Port: "443"},
	}
}
