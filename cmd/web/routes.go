package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/tkd-draws/internal/config"
	"github.com/AdamBeresnev/tkd-draws/internal/httputil"
	"github.com/AdamBeresnev/tkd-draws/internal/middleware"
	"github.com/AdamBeresnev/tkd-draws/internal/service"
	"github.com/AdamBeresnev/tkd-draws/internal/store"
	"github.com/AdamBeresnev/tkd-draws/internal/utils"
	"github.com/AdamBeresnev/tkd-draws/views"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"
)

func newRouter(cfg *config.Config, dbConn *sqlx.DB, sessionManager *scs.SessionManager) http.Handler {
	drawStore := store.NewDrawStore(dbConn)
	competitionStore := store.NewCompetitionStore(dbConn)
	matStore := store.NewMatStore(dbConn)
	userStore := store.NewUserStore(dbConn)

	drawService := service.NewDrawService(dbConn, drawStore, store.NewEnrollmentStore(dbConn), competitionStore, cfg.DefaultClubThreshold)
	numberingService := service.NewNumberingService(dbConn, drawStore, matStore, competitionStore)
	bracketService := service.NewBracketService(dbConn, drawStore, matStore, competitionStore, store.NewPlayerStore(dbConn))
	userService := service.NewUserService(dbConn, userStore, cfg.IsStaffEmail)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public bracket API, readable from the federation website
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			MaxAge:         300,
		}))

		r.Get("/api/competitions/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
			if err != nil {
				httputil.BadRequest(w, "Invalid competition ID", err)
				return
			}
			data, err := bracketService.GetPublicBracket(r.Context(), id)
			if err != nil {
				httputil.Error(w, "Failed to get bracket", err)
				return
			}
			httputil.JSON(w, http.StatusOK, data)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.LoadAuthenticatedUser(sessionManager, userStore))

		r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
			views.Render(w, r, views.LoginPage())
		})

		r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
			provider := chi.URLParam(r, "provider")
			r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

			gothic.BeginAuthHandler(w, r)
		})

		r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
			provider := chi.URLParam(r, "provider")
			r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

			gothUser, err := gothic.CompleteUserAuth(w, r)
			if err != nil {
				httputil.BadRequest(w, "Authentication failure", err)
				return
			}

			user, err := userService.FindOrCreateUserByProvider(r.Context(), gothUser)
			if err != nil {
				httputil.InternalServerError(w, "Failed to find or create user", err)
				return
			}

			if err := sessionManager.RenewToken(r.Context()); err != nil {
				httputil.InternalServerError(w, "Failed to renew session", err)
				return
			}
			sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())

			http.Redirect(w, r, "/login", http.StatusFound)
		})

		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			if err := sessionManager.Destroy(r.Context()); err != nil {
				httputil.InternalServerError(w, "Failed to sign out", err)
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireStaff)

			r.Get("/draws/preview", func(w http.ResponseWriter, r *http.Request) {
				req, ok := parseDrawRequest(w, r)
				if !ok {
					return
				}
				preview, err := drawService.PreviewDivision(r.Context(), req)
				if err != nil {
					httputil.Error(w, "Failed to preview division", err)
					return
				}
				httputil.JSON(w, http.StatusOK, preview)
			})

			r.Get("/draws/latest", func(w http.ResponseWriter, r *http.Request) {
				req, ok := parseDrawRequest(w, r)
				if !ok {
					return
				}
				draw, err := drawService.LatestDraw(r.Context(), req)
				if err != nil {
					httputil.Error(w, "Failed to get draw", err)
					return
				}
				httputil.JSON(w, http.StatusOK, draw)
			})

			r.Get("/draws/{id}", func(w http.ResponseWriter, r *http.Request) {
				id, err := uuid.Parse(chi.URLParam(r, "id"))
				if err != nil {
					httputil.BadRequest(w, "Invalid draw ID", err)
					return
				}
				draw, err := drawService.GetDraw(r.Context(), id)
				if err != nil {
					httputil.Error(w, "Failed to get draw", err)
					return
				}
				httputil.JSON(w, http.StatusOK, draw)
			})

			r.Post("/draws", func(w http.ResponseWriter, r *http.Request) {
				req, ok := parseDrawRequest(w, r)
				if !ok {
					return
				}
				draw, err := drawService.CreateDrawForGroup(r.Context(), req)
				if err != nil {
					httputil.Error(w, "Failed to create draw", err)
					return
				}
				httputil.JSON(w, http.StatusCreated, draw)
			})

			r.Post("/numbering", func(w http.ResponseWriter, r *http.Request) {
				competitionID, weightIDs, ok := parseNumberingForm(w, r)
				if !ok {
					return
				}
				result, err := numberingService.RunNumbering(r.Context(), service.NumberingRequest{
					CompetitionID: competitionID,
					WeightIDs:     weightIDs,
					ClearPrevious: formBool(r, "clear_previous"),
					Apply:         formBool(r, "apply"),
				})
				if err != nil {
					httputil.Error(w, "Failed to number matches", err)
					return
				}
				httputil.JSON(w, http.StatusOK, result)
			})

			r.Post("/numbering/clear", func(w http.ResponseWriter, r *http.Request) {
				competitionID, weightIDs, ok := parseNumberingForm(w, r)
				if !ok {
					return
				}
				if err := numberingService.ClearMatchNumbersForCompetition(r.Context(), competitionID, weightIDs); err != nil {
					httputil.Error(w, "Failed to clear match numbers", err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Get("/numbering/sheet", func(w http.ResponseWriter, r *http.Request) {
				competitionID, weightIDs, ok := parseNumberingForm(w, r)
				if !ok {
					return
				}
				sheet, err := bracketService.NumberingSheet(r.Context(), competitionID, weightIDs)
				if err != nil {
					httputil.Error(w, "Failed to build numbering sheet", err)
					return
				}
				if err := views.Render(w, r, views.NumberingSheet(sheet)); err != nil {
					httputil.InternalServerError(w, "Failed to render numbering sheet", err)
				}
			})

			r.Post("/competitions/{id}/publish", func(w http.ResponseWriter, r *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
				if err != nil {
					httputil.BadRequest(w, "Invalid competition ID", err)
					return
				}
				if err := bracketService.Publish(r.Context(), id); err != nil {
					httputil.Error(w, "Failed to publish bracket", err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Post("/competitions/{id}/unpublish", func(w http.ResponseWriter, r *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
				if err != nil {
					httputil.BadRequest(w, "Invalid competition ID", err)
					return
				}
				if err := bracketService.Unpublish(r.Context(), id); err != nil {
					httputil.Error(w, "Failed to unpublish bracket", err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})
		})
	})

	return r
}

// parseDrawRequest reads a division from the query string or a posted form.
func parseDrawRequest(w http.ResponseWriter, r *http.Request) (service.DrawRequest, bool) {
	var req service.DrawRequest
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "Invalid form data", err)
		return req, false
	}

	var err error
	if req.CompetitionID, err = strconv.ParseInt(r.Form.Get("competition_id"), 10, 64); err != nil {
		httputil.BadRequest(w, "Invalid competition ID", err)
		return req, false
	}
	if req.BeltGroupID, err = strconv.ParseInt(r.Form.Get("belt_group_id"), 10, 64); err != nil {
		httputil.BadRequest(w, "Invalid belt group ID", err)
		return req, false
	}
	if req.WeightCategoryID, err = strconv.ParseInt(r.Form.Get("weight_category_id"), 10, 64); err != nil {
		httputil.BadRequest(w, "Invalid weight category ID", err)
		return req, false
	}
	if v := r.Form.Get("age_category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "Invalid age category ID", err)
			return req, false
		}
		req.AgeCategoryID = utils.Ptr(id)
	}
	if req.ClubThreshold, err = optionalInt(r.Form.Get("club_threshold")); err != nil {
		httputil.BadRequest(w, "Invalid club threshold", err)
		return req, false
	}
	if req.SizeOverride, err = optionalInt(r.Form.Get("size")); err != nil {
		httputil.BadRequest(w, "Invalid bracket size", err)
		return req, false
	}
	req.Seed = r.Form.Get("seed")
	return req, true
}

func parseNumberingForm(w http.ResponseWriter, r *http.Request) (int64, []int64, bool) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, "Invalid form data", err)
		return 0, nil, false
	}
	competitionID, err := strconv.ParseInt(r.Form.Get("competition_id"), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "Invalid competition ID", err)
		return 0, nil, false
	}

	var weightIDs []int64
	for _, raw := range r.Form["weight_id"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				httputil.BadRequest(w, "Invalid weight category ID", err)
				return 0, nil, false
			}
			weightIDs = append(weightIDs, id)
		}
	}
	return competitionID, weightIDs, true
}

func optionalInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func formBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.Form.Get(key))
	return v
}
