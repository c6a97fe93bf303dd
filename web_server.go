package main

import (
	"html/template"
	"io/ioutil"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kaneland/tokengate/common"
)

const tmplLogin = "login.html"

var (
	LoginPath  = "/"
	ThemesPath = "/themes/"
)

// webServer serves the static sign-in page and its assets.
type webServer struct {
	TemplatePaths []string
	// Frontend-related values for context
	ClientID    string
	ClientName  string
	ProviderURL string
	TargetURL   string
}

func (s *webServer) addRoutes(router *mux.Router) error {

	// Load templates
	filenames := []string{}
	for _, p := range s.TemplatePaths {
		tmpls, err := listTemplates(p)
		if err != nil {
			return err
		}
		filenames = append(filenames, tmpls...)
	}

	templates, err := template.New("").ParseFiles(filenames...)
	if err != nil {
		return err
	}

	data := struct {
		ClientID    string
		ClientName  string
		ProviderURL string
		TargetURL   string
		VerifyPath  string
	}{
		ClientID:    s.ClientID,
		ClientName:  s.ClientName,
		ProviderURL: s.ProviderURL,
		TargetURL:   s.TargetURL,
		VerifyPath:  VerifyTokenPath,
	}
	router.HandleFunc(LoginPath, siteHandler(templates.Lookup(tmplLogin), data)).Methods(http.MethodGet)

	// Themes
	router.
		PathPrefix(ThemesPath).
		Handler(
			http.StripPrefix(
				ThemesPath,
				http.FileServer(http.Dir("web/themes")),
			),
		)

	return nil
}

// siteHandler returns an http.HandlerFunc that serves a given template
func siteHandler(tmpl *template.Template, data interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := common.RequestLogger(r, "web server")
		if err := tmpl.Execute(w, data); err != nil {
			logger.Errorf("Error executing template: %v", err)
		}
	}
}

func listTemplates(dir string) ([]string, error) {
	tmplPaths := []string{}
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".html") {
			tmplPaths = append(tmplPaths, filepath.Join(dir, f.Name()))
		}
	}
	return tmplPaths, err
}
