package main

import (
	"bytes"
	"io/ioutil"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v3"
)

type config struct {
	// OIDC Client
	ClientID    string   `required:"true" split_words:"true"`
	ProviderURL *url.URL `split_words:"true" default:"https://accounts.google.com" envconfig:"OIDC_PROVIDER"`

	// Access policy
	EmailDomain   string        `split_words:"true" default:"kaneland.org"`
	Denylist      []string      `split_words:"true"`
	DenylistPath  string        `split_words:"true"`
	TargetURL     *url.URL      `split_words:"true" default:"https://mail.google.com"`
	VerifyTimeout time.Duration `split_words:"true" default:"10s"`

	// Infra
	Hostname           string `split_words:"true" envconfig:"SERVER_HOSTNAME"`
	Port               int    `split_words:"true" default:"3000"`
	ReadinessProbePort int    `split_words:"true" default:"8081"`
	CABundlePath       string `split_words:"true" envconfig:"CA_BUNDLE"`
	LogLevel           string `split_words:"true" default:"INFO"`

	// Site
	ClientName   string   `split_words:"true" default:"Kaneland Login"`
	TemplatePath []string `split_words:"true"`
}

func parseConfig() (*config, error) {

	var c config
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}

	denylist := trimSpaceFromStringSliceElements(c.Denylist)
	if c.DenylistPath != "" {
		fromFile, err := parseDenylistFile(c.DenylistPath)
		if err != nil {
			return nil, errors.Wrapf(err, "error loading denylist from %s", c.DenylistPath)
		}
		denylist = append(denylist, trimSpaceFromStringSliceElements(fromFile)...)
	}
	// The gate compares lower-cased identities, so normalize the entries
	// the same way.
	for i, email := range denylist {
		denylist[i] = strings.ToLower(email)
	}
	c.Denylist = denylist

	c.TemplatePath = trimSpaceFromStringSliceElements(c.TemplatePath)
	c.TemplatePath = ensureInSlice("web/templates/default", c.TemplatePath)

	return &c, err
}

// denylistFile is the schema of the optional denylist YAML file:
//
//	denylist:
//	  - user_to_deny@kaneland.org
type denylistFile struct {
	Denylist []string `yaml:"denylist"`
}

func parseDenylistFile(path string) ([]string, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f denylistFile
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	if err := decoder.Decode(&f); err != nil {
		return nil, err
	}
	return f.Denylist, nil
}

func trimSpaceFromStringSliceElements(slice []string) []string {
	ret := []string{}
	for _, elem := range slice {
		elem = strings.TrimSpace(elem)
		if len(elem) > 0 {
			ret = append(ret, elem)
		}
	}
	return ret
}

func ensureInSlice(elem string, slice []string) []string {
	for _, s := range slice {
		if elem == s {
			return slice
		}
	}
	slice = append([]string{elem}, slice...)
	return slice
}
