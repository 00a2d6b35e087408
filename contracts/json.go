package contracts

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// URL is a url.URL that reads and writes itself as a plain string in
// JSON and YAML documents.
type URL url.URL

func (this *URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(this.Value().String())
}

func (this *URL) UnmarshalJSON(p []byte) error {
	if string(p) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(p, &raw); err != nil {
		return err
	}
	return this.UnmarshalText([]byte(raw))
}

func (this *URL) UnmarshalText(p []byte) error {
	raw := strings.TrimSpace(string(p))
	if raw == "" || raw == "null" {
		return nil
	}
	address, err := url.Parse(raw)
	if err == nil {
		*this = URL(*address)
	}
	return err
}

func (this URL) Value() *url.URL {
	standard := url.URL(this)
	return &standard
}

func (this URL) IsZero() bool {
	return this.Value().String() == ""
}

// AppendRemotePath returns a copy of address with the slash-separated
// elements joined onto its path.
func AppendRemotePath(address url.URL, elements ...string) url.URL {
	address.Path = path.Join(append([]string{address.Path}, elements...)...)
	if !strings.HasPrefix(address.Path, "/") {
		address.Path = "/" + address.Path
	}
	return address
}
