/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/drilonhametaj25/milionario-game/stories"
	"github.com/julienschmidt/httprouter"
)

//go:embed assets/*
var assets embed.FS

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="it">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Il Milionario</title>
<link rel="stylesheet" href="{{.Prefix}}/assets/millionaire/app.css">
</head>
<body>
<main class="home">
<h1>💰 Il Milionario</h1>
<form class="card" method="get" action="{{.Prefix}}/join">
<label for="code">Codice stanza</label>
<input id="code" name="code" maxlength="6" autocomplete="off" required>
<button type="submit">Entra</button>
</form>
{{range .Stories}}
<section class="card story">
<h2>{{.Emoji}} {{.Title}}</h2>
<p class="tagline">{{.Tagline}}</p>
<p class="meta">{{.Setting}} · {{.MinPlayers}}-{{.Capacity}} giocatori</p>
<a class="button" href="{{$.Prefix}}{{$.Path}}?story={{.Slug}}">Crea stanza</a>
</section>
{{end}}
</main>
</body>
</html>
`))

type homeStory struct {
	Slug       string
	Title      string
	Tagline    string
	Setting    string
	Emoji      string
	MinPlayers int
	Capacity   int
}

func serveHomePage(cfg *Config, library *stories.Library, path string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		list := make([]homeStory, 0, library.Len())
		for _, s := range library.List() {
			list = append(list, homeStory{
				Slug:       s.Slug,
				Title:      s.Title,
				Tagline:    s.Tagline,
				Setting:    s.Setting,
				Emoji:      s.Emoji,
				MinPlayers: max(s.MinPlayers, cfg.minPlayers),
				Capacity:   s.Capacity(),
			})
		}

		var buf bytes.Buffer
		err := homeTemplate.Execute(&buf, struct {
			Prefix  string
			Path    string
			Stories []homeStory
		}{cfg.prefix, path, list})
		if err != nil {
			errs <- err

			http.Error(w, "unable to render page", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		writeBody(cfg, w, r, errs, "Home page", http.StatusOK, buf.Bytes(), startTime)
	}
}

// serveJoin sends a typed room code to its room page.
func serveJoin(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code, ok := normalizeRoomCode(r.URL.Query().Get("code"))
		if !ok {
			http.Redirect(w, r, cfg.prefix+"/", http.StatusSeeOther)
			return
		}

		http.Redirect(w, r, cfg.prefix+path+"/"+code, http.StatusSeeOther)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveAssets(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		fname := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, cfg.prefix), "/")

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		switch strings.ToLower(filepath.Ext(fname)) {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		case ".html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}

		writeBody(cfg, w, r, errs, "Asset "+fname, http.StatusOK, data, startTime)
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		data := `User-agent: *
Disallow: /millionaire/

User-agent: GPTBot
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: Google-Extended
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		writeBody(cfg, w, r, errs, "Robots", http.StatusOK, []byte(data), startTime)
	}
}
