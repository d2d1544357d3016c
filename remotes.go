package lfc

import (
	"github.com/aweris/lfc/internal/config"
)

// RemoteInfo describes a configured remote cache.
type RemoteInfo struct {
	Name    string
	URL     string
	Kind    string
	Default bool
}

// AddRemote registers (or updates) a remote cache. The first remote added
// becomes the default; makeDefault promotes any remote explicitly.
func (r *Repo) AddRemote(name, url, kind string, makeDefault bool) error {
	if name == "" || url == "" {
		return E(KindUsage, "remote add", "name and url required")
	}
	r.cfg.SetRemote(config.Remote{Name: name, URL: url, Kind: kind}, makeDefault)
	return r.saveConfig()
}

// RemoveRemote deletes a remote. Removing the default clears default-remote.
func (r *Repo) RemoveRemote(name string) error {
	if err := r.cfg.RemoveRemote(name); err != nil {
		return Wrap(KindUsage, "remote remove", name, err)
	}
	return r.saveConfig()
}

// SetRemoteURL changes an existing remote's URL.
func (r *Repo) SetRemoteURL(name, url string) error {
	spec, ok := r.cfg.Remotes[name]
	if !ok {
		return Errorf(KindUsage, "remote set-url: unknown remote %q", name)
	}
	spec.URL = url
	r.cfg.Remotes[name] = spec
	return r.saveConfig()
}

// Remotes lists the configured remotes, sorted by name.
func (r *Repo) Remotes() []RemoteInfo {
	names := r.cfg.RemoteNames()
	infos := make([]RemoteInfo, 0, len(names))
	for _, name := range names {
		spec := r.cfg.Remotes[name]
		infos = append(infos, RemoteInfo{
			Name:    name,
			URL:     spec.URL,
			Kind:    spec.Kind,
			Default: name == r.cfg.DefaultRemote,
		})
	}
	return infos
}

// ConfigGet resolves a repository config key to its textual value.
func (r *Repo) ConfigGet(key string) (string, bool) {
	return r.cfg.Get(key)
}

// ConfigSet validates and persists a repository config key.
func (r *Repo) ConfigSet(key, value string) error {
	if err := r.cfg.Set(key, value); err != nil {
		return Wrap(KindUsage, "config set", key, err)
	}
	return r.saveConfig()
}
