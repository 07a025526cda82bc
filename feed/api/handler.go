package api

import (
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/feedkv/feedkv/feed"
	"github.com/feedkv/feedkv/kv/storage"
)

type handler struct {
	storage storage.Storage
	hub     *feed.Hub
	retry   feed.RetryPolicy
	rd      *render.Render
}

type idResp struct {
	ID uint64 `json:"id"`
}

type itemResp struct {
	ID      uint64 `json:"id"`
	Content string `json:"content"`
}

func (h *handler) open(r *http.Request) *feed.Feed {
	return feed.Open(mux.Vars(r)["feed"], h.storage, h.hub, h.retry)
}

func (h *handler) renderErr(w http.ResponseWriter, err error) {
	switch {
	case feed.IsNoSuchItem(err):
		h.rd.JSON(w, http.StatusNotFound, err.Error())
	case feed.IsTooManyConflicts(err):
		h.rd.JSON(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.rd.JSON(w, http.StatusInternalServerError, err.Error())
	}
}

func parseID(r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	return id, err == nil
}

// publish appends by default; ?position=prepend pushes to the head, and
// ?before=<id> / ?after=<id> insert relative to an existing item.
func (h *handler) publish(w http.ResponseWriter, r *http.Request) {
	content, err := ioutil.ReadAll(r.Body)
	if err != nil {
		h.rd.JSON(w, http.StatusBadRequest, err.Error())
		return
	}
	f := h.open(r)
	query := r.URL.Query()

	var id uint64
	switch {
	case query.Get("before") != "":
		anchor, perr := strconv.ParseUint(query.Get("before"), 10, 64)
		if perr != nil {
			h.rd.JSON(w, http.StatusBadRequest, "bad anchor id")
			return
		}
		id, err = f.PublishBefore(anchor, content)
	case query.Get("after") != "":
		anchor, perr := strconv.ParseUint(query.Get("after"), 10, 64)
		if perr != nil {
			h.rd.JSON(w, http.StatusBadRequest, "bad anchor id")
			return
		}
		id, err = f.PublishAfter(anchor, content)
	case query.Get("position") == "prepend":
		id, err = f.Prepend(content)
	default:
		id, err = f.Publish(content)
	}
	if err != nil {
		h.renderErr(w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, idResp{ID: id})
}

func (h *handler) edit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		h.rd.JSON(w, http.StatusBadRequest, "bad item id")
		return
	}
	content, err := ioutil.ReadAll(r.Body)
	if err != nil {
		h.rd.JSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.open(r).Edit(id, content); err != nil {
		h.renderErr(w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, nil)
}

func (h *handler) retract(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		h.rd.JSON(w, http.StatusBadRequest, "bad item id")
		return
	}
	if err := h.open(r).Retract(id); err != nil {
		h.renderErr(w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, nil)
}

func (h *handler) getIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.open(r).GetIDs()
	if err != nil {
		h.renderErr(w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, ids)
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		h.rd.JSON(w, http.StatusBadRequest, "bad item id")
		return
	}
	content, err := h.open(r).GetItem(id)
	if err != nil {
		h.renderErr(w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, itemResp{ID: id, Content: string(content)})
}

// getItems renders the item snapshot in feed order.
func (h *handler) getItems(w http.ResponseWriter, r *http.Request) {
	f := h.open(r)
	items, err := f.GetItems()
	if err != nil {
		h.renderErr(w, err)
		return
	}
	ids, err := f.GetIDs()
	if err != nil {
		h.renderErr(w, err)
		return
	}
	resp := make([]itemResp, 0, len(items))
	for _, id := range ids {
		if content, ok := items[id]; ok {
			resp = append(resp, itemResp{ID: id, Content: string(content)})
		}
	}
	h.rd.JSON(w, http.StatusOK, resp)
}

// events streams the feed's notification channel, one wire-framed event per
// line, until the client goes away. Events committed before the request
// arrived are not replayed.
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.rd.JSON(w, http.StatusNotImplemented, "streaming unsupported")
		return
	}
	ch, cancel := h.hub.Subscribe(mux.Vars(r)["feed"])
	defer cancel()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(append(e.Marshal(), '\n')); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
