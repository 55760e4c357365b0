package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hsb-core/internal/automation"
	"github.com/nerrad567/hsb-core/internal/manager"
)

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	reply, ok := s.execute(w, r, manager.Request{Cmd: "get_scenes"})
	if !ok {
		return
	}
	scenes := reply.Data["scenes"]
	if scenes == nil {
		scenes = []automation.Scene{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes})
}

// handlePutScene creates or replaces the scene named in the path. The
// name in the body, if any, is overridden.
func (s *Server) handlePutScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var scene automation.Scene
	if err := json.NewDecoder(r.Body).Decode(&scene); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	scene.Name = name

	raw, err := json.Marshal([]automation.Scene{scene})
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if _, ok := s.execute(w, r, manager.Request{Cmd: "set_scenes", Scenes: raw}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.execute(w, r, manager.Request{Cmd: "del_scene", Name: name}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEnterScene starts a scene. The response returns as soon as the
// scene is entered; delayed actions run later on the dispatcher.
func (s *Server) handleEnterScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.execute(w, r, manager.Request{Cmd: "enter_scene", Name: name}); !ok {
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"name": name, "status": "entered"})
}
