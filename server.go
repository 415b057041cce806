package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/dlaregions/annotate"
	"github.com/mgmeyers/dlaregions/config"
	"github.com/mgmeyers/dlaregions/docutils"
	"github.com/mgmeyers/dlaregions/session"
	"github.com/mgmeyers/dlaregions/viewport"
)

// server drives one session from a browser. Handlers run one at a time.
type server struct {
	mu     sync.Mutex
	s      *session.Session
	router *session.Router
	paths  *config.Paths
	log    logrus.FieldLogger
}

func newServer(s *session.Session, paths *config.Paths, log logrus.FieldLogger) *server {
	return &server{
		s:      s,
		router: session.NewRouter(s),
		paths:  paths,
		log:    log,
	}
}

func (srv *server) listen(addr string) error {
	srv.log.WithField("addr", addr).Info("serving viewer")
	return http.ListenAndServe(addr, srv.routes())
}

func (srv *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", srv.handleIndex)
	mux.HandleFunc("/state", srv.get(srv.handleState))
	mux.HandleFunc("/scene.svg", srv.get(srv.handleScene))
	mux.HandleFunc("/documents", srv.get(srv.handleDocuments))
	mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(srv.paths.Cache))))

	mux.HandleFunc("/document", srv.post(srv.handleDocument))
	mux.HandleFunc("/load", srv.post(func(r *http.Request) error { return srv.s.Load() }))
	mux.HandleFunc("/page", srv.post(srv.handlePage))
	mux.HandleFunc("/key", srv.post(srv.handleKey))
	mux.HandleFunc("/click", srv.post(srv.handleClick))
	mux.HandleFunc("/label", srv.post(srv.handleLabel))

	return mux
}

type viewState struct {
	Document       string `json:"document"`
	DocumentExists bool   `json:"documentExists"`
	Loaded         string `json:"loaded"`
	Page           int    `json:"page"`
	PageCount      int    `json:"pageCount"`
	Image          string `json:"image,omitempty"`
	Label          int    `json:"label"`
	Pending        bool   `json:"pending"`
	Regions        int    `json:"regions"`
	Scene          string `json:"scene"`
}

func (srv *server) mediaURL() string {
	img := srv.s.Image()
	if img == nil {
		return ""
	}
	return "/media/" + url.PathEscape(img.Name())
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

func (srv *server) state() viewState {
	sel := srv.s.Selector()
	_, pending := sel.Pending()

	st := viewState{
		Document:       baseName(srv.s.Document()),
		DocumentExists: srv.s.DocumentExists(),
		Loaded:         baseName(srv.s.Loaded()),
		Page:           srv.s.Page(),
		PageCount:      srv.s.PageCount(),
		Label:          sel.Label(),
		Pending:        pending,
		Regions:        len(sel.Overlays()),
		Scene:          srv.s.Scene(srv.mediaURL()),
	}
	if img := srv.s.Image(); img != nil {
		st.Image = img.Name()
	}

	return st
}

func (srv *server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		srv.log.WithError(err).Warn("writing response")
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoDocument), errors.Is(err, viewport.ErrNotLoaded):
		return http.StatusConflict
	case errors.Is(err, docutils.ErrRenderFailed):
		return http.StatusBadGateway
	case errors.Is(err, annotate.ErrInvalidSidecar):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return errors.Wrapf(errBadRequest, format, args...)
}

func (srv *server) get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		srv.mu.Lock()
		defer srv.mu.Unlock()
		h(w, r)
	}
}

// post runs a command and answers with the resulting view state, or the
// error as plain text.
func (srv *server) post(cmd func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		srv.mu.Lock()
		defer srv.mu.Unlock()

		if err := cmd(r); err != nil {
			status := errorStatus(err)
			srv.log.WithError(err).WithField("path", r.URL.Path).Warn("command failed")
			http.Error(w, err.Error(), status)
			return
		}

		srv.writeJSON(w, srv.state())
	}
}

func (srv *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexHTML, config.RenderWidth, config.RenderHeight)
}

func (srv *server) handleState(w http.ResponseWriter, r *http.Request) {
	srv.writeJSON(w, srv.state())
}

func (srv *server) handleScene(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	fmt.Fprintf(w, "<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 %d %d' width='%d' height='%d'>%s</svg>",
		config.RenderWidth, config.RenderHeight, config.RenderWidth, config.RenderHeight,
		srv.s.Scene(srv.mediaURL()))
}

func (srv *server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := docutils.ListDocuments(srv.paths.Docs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, filepath.Base(d))
	}
	srv.writeJSON(w, names)
}

func (srv *server) handleDocument(r *http.Request) error {
	name := filepath.Base(r.FormValue("name"))
	if !docutils.IsSupported(name) {
		return badRequest("unsupported document %q", name)
	}

	srv.s.SetDocument(filepath.Join(srv.paths.Docs, name))
	return nil
}

func (srv *server) handlePage(r *http.Request) error {
	n, err := strconv.Atoi(r.FormValue("n"))
	if err != nil {
		return badRequest("page %q", r.FormValue("n"))
	}

	return srv.s.SetPage(n)
}

func (srv *server) handleKey(r *http.Request) error {
	_, err := srv.router.Key(r.FormValue("key"))
	return err
}

func (srv *server) handleClick(r *http.Request) error {
	x, err := strconv.ParseFloat(r.FormValue("x"), 64)
	if err != nil {
		return badRequest("x %q", r.FormValue("x"))
	}
	y, err := strconv.ParseFloat(r.FormValue("y"), 64)
	if err != nil {
		return badRequest("y %q", r.FormValue("y"))
	}

	_, err = srv.router.Click(x, y)
	return err
}

func (srv *server) handleLabel(r *http.Request) error {
	n, err := strconv.Atoi(r.FormValue("n"))
	if err != nil {
		return badRequest("label %q", r.FormValue("n"))
	}

	srv.s.Selector().SetLabel(n)
	return nil
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>dlaregions</title>
<style>
body { font-family: sans-serif; margin: 1em; }
#canvas { width: 800px; background: #6b7280; cursor: crosshair; }
#error { color: #b91c1c; }
</style>
</head>
<body>
<div>
  <select id="doc"></select>
  <button id="load">Load</button>
  page <input id="page" type="number" min="1" style="width: 5em"> / <span id="count">0</span>
  label <input id="label" type="number" min="0" style="width: 4em">
  <span id="status"></span>
</div>
<p id="error"></p>
<svg id="canvas" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %[1]d %[2]d"></svg>
<script>
const W = %[1]d, H = %[2]d;
const $ = (id) => document.getElementById(id);

function show(st) {
  $("canvas").innerHTML = st.scene;
  $("page").value = st.page;
  $("page").max = st.pageCount;
  $("count").textContent = st.pageCount;
  $("label").value = st.label;
  $("load").disabled = !st.documentExists;
  $("status").textContent = (st.image || "") + " regions: " + st.regions + (st.pending ? " (corner pending)" : "");
}

async function send(path, params) {
  const res = await fetch(path, {method: "POST", body: new URLSearchParams(params)});
  if (!res.ok) {
    $("error").textContent = await res.text();
    return;
  }
  $("error").textContent = "";
  show(await res.json());
}

async function init() {
  const docs = await (await fetch("/documents")).json();
  const st = await (await fetch("/state")).json();
  for (const d of docs) {
    const o = document.createElement("option");
    o.value = o.textContent = d;
    o.selected = d === st.document;
    $("doc").appendChild(o);
  }
  show(st);
}

$("doc").addEventListener("change", (e) => send("/document", {name: e.target.value}));
$("load").addEventListener("click", () => send("/load", {}));
$("page").addEventListener("change", (e) => send("/page", {n: e.target.value}));
$("label").addEventListener("change", (e) => send("/label", {n: e.target.value}));
$("canvas").addEventListener("click", (e) => {
  const r = $("canvas").getBoundingClientRect();
  send("/click", {x: (e.clientX - r.left) * W / r.width, y: (e.clientY - r.top) * H / r.height});
});
document.addEventListener("keydown", (e) => {
  if (e.target.tagName === "INPUT" || e.target.tagName === "SELECT") return;
  send("/key", {key: e.key});
});

init();
</script>
</body>
</html>
`
