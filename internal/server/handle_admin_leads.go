package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/leads"
)

const (
	mailSubject = "Your Signal Check results"
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// LeadItem is a stored lead with its tier derived from the raw score.
type LeadItem struct {
	leads.Record
	Percentage int             `json:"percentage"`
	Tier       assessment.Tier `json:"tier"`
	TierSlug   string          `json:"tierSlug"`
}

type LeadDetail struct {
	LeadItem
	MailTo string `json:"mailto"`
}

func leadItem(store *leads.Store, r leads.Record) LeadItem {
	res := store.Result(r)
	return LeadItem{
		Record:     r,
		Percentage: res.Percentage,
		Tier:       res.Tier,
		TierSlug:   res.Tier.Slug(),
	}
}

func mailtoLink(email string) string {
	u := url.URL{
		Scheme:   "mailto",
		Opaque:   email,
		RawQuery: url.Values{"subject": {mailSubject}}.Encode(),
	}
	return u.String()
}

// leadFilter reads ?q= and ?tier=. An unknown tier is an error.
func leadFilter(r *http.Request) (leads.Filter, error) {
	f := leads.Filter{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("tier"); raw != "" {
		t, err := assessment.ParseTier(raw)
		if err != nil {
			return leads.Filter{}, err
		}
		f.Tier = t
	}
	return f, nil
}

func handleAdminListLeads(store *leads.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := leadFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		records, err := store.List(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]LeadItem, 0, len(records))
		for _, rec := range records {
			items = append(items, leadItem(store, rec))
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleAdminGetLead(store *leads.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, leads.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, LeadDetail{
			LeadItem: leadItem(store, rec),
			MailTo:   mailtoLink(rec.ContactEmail),
		})
	}
}

func handleAdminDeleteLead(store *leads.Store, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := store.Delete(r.Context(), id)
		if errors.Is(err, leads.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("lead deleted", "lead_id", id, "admin_id", adminFrom(r).AdminID)
		broker.Publish(LeadEvent{Type: EventLeadDeleted, LeadID: id})
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAdminListUsers(store *leads.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.Users(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if users == nil {
			users = []leads.User{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// DeleteUserResponse lists the leads removed with a user.
type DeleteUserResponse struct {
	Deleted []string `json:"deleted"`
}

func handleAdminDeleteUser(store *leads.Store, broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := url.PathUnescape(chi.URLParam(r, "email"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid email")
			return
		}

		ids, err := store.DeleteByEmail(r.Context(), email)
		if errors.Is(err, leads.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("user deleted", "leads", len(ids), "admin_id", adminFrom(r).AdminID)
		for _, id := range ids {
			broker.Publish(LeadEvent{Type: EventLeadDeleted, LeadID: id})
		}
		writeJSON(w, http.StatusOK, DeleteUserResponse{Deleted: ids})
	}
}

func handleAdminStats(store *leads.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleAdminAnalytics(store *leads.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.Analytics(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func setAttachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func handleAdminExportCSV(store *leads.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := leadFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		records, err := store.List(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		setAttachment(w, "text/csv; charset=utf-8", leads.ExportFilename(time.Now(), "csv"))
		w.WriteHeader(http.StatusOK)
		if err := store.WriteCSV(w, records); err != nil {
			logger.Error("writing csv export", "error", err)
		}
	}
}

func handleAdminExportXLSX(store *leads.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := leadFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		records, err := store.List(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		buf, err := store.XLSX(records, logger)
		if err != nil {
			logger.Error("building xlsx export", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		setAttachment(w, xlsxType, leads.ExportFilename(time.Now(), "xlsx"))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Error("writing xlsx export", "error", err)
		}
	}
}
