// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"github.com/jcodagnone/denuncia/location"
	"github.com/jcodagnone/denuncia/metrics"
	"github.com/jcodagnone/denuncia/spatial"
)

// ServerOptions are the optional collaborators of the HTTP API.
type ServerOptions struct {
	// Geocoder serves /api/location. Nil means regional fallback only.
	Geocoder       location.Geocoder
	GeocodeTimeout time.Duration
	// Tokens verifies bearer tokens. Nil disables authentication.
	Tokens *TokenIssuer
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	Metrics        *metrics.Metrics
	// MediaDir is served under the path of MediaPrefix, for the FileStore.
	// MediaPrefix may be the absolute public base URL.
	MediaDir    string
	MediaPrefix string
}

// Server exposes the service over HTTP. The service must use ContextAuth so
// handlers see the user of the request.
type Server struct {
	service *Service
	opts    ServerOptions
}

// NewServer creates the HTTP API.
func NewServer(service *Service, opts ServerOptions) *Server {
	if opts.GeocodeTimeout == 0 {
		opts.GeocodeTimeout = location.DefaultGeocodeTimeout
	}

	return &Server{service: service, opts: opts}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(s.authenticate)

	r.GET("/api/categories", s.listCategories)
	r.GET("/api/denunciations", s.listDenunciations)
	r.GET("/api/denunciations.geojson", s.geoJSON)
	r.GET("/api/denunciations/live", s.live)
	r.GET("/api/denunciations/:id", s.getDenunciation)
	r.POST("/api/denunciations", s.createDenunciation)
	r.POST("/api/denunciations/:id/image", s.attachImage)
	r.POST("/api/denunciations/:id/image/link", s.linkImage)
	r.POST("/api/denunciations/:id/votes", s.vote)
	r.GET("/api/location", s.resolveLocation)
	r.POST("/api/session/signout", s.signOut)

	if s.opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(s.opts.MetricsHandler))
	}

	if s.opts.MediaDir != "" {
		r.Static(mediaRoute(s.opts.MediaPrefix), s.opts.MediaDir)
	}

	return r
}

// mediaRoute is the path part of the media base URL, which may be absolute.
func mediaRoute(base string) string {
	prefix := base
	if u, err := url.Parse(base); err == nil {
		prefix = u.Path
	}

	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return "/media"
	}

	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	return prefix
}

// Run serves the API on addr.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

// authenticate puts the bearer token user, if any, in the request context.
// A bad token is rejected; a missing one leaves the request anonymous.
func (s *Server) authenticate(ctx *gin.Context) {
	if s.opts.Tokens == nil {
		return
	}

	header := ctx.GetHeader("Authorization")
	if header == "" {
		return
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "formato de autorização inválido"})

		return
	}

	user, err := s.opts.Tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

		return
	}

	ctx.Request = ctx.Request.WithContext(WithUser(ctx.Request.Context(), user))
	ctx.Next()
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	var (
		validationErr *ValidationError
		uploadErr     *UploadError
		linkErr       *LinkError
		permErr       *location.PermissionError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrImageAlreadyAttached):
		return http.StatusConflict
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAnImage):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &linkErr):
		return http.StatusAccepted
	case errors.As(err, &uploadErr):
		return http.StatusBadGateway
	case errors.As(err, &permErr):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(ctx *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", ctx.FullPath()).Error("request failed")
	}

	body := gin.H{"error": err.Error()}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		body["missing"] = validationErr.Missing
	}

	ctx.JSON(status, body)
}

func (s *Server) listCategories(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, Categories)
}

func (s *Server) listDenunciations(ctx *gin.Context) {
	records, err := s.service.List(ctx.Request.Context())
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, records)
}

func (s *Server) geoJSON(ctx *gin.Context) {
	fc, err := s.service.GeoJSON(ctx.Request.Context())
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.Header("Content-Type", "application/geo+json")
	ctx.JSON(http.StatusOK, fc)
}

func (s *Server) getDenunciation(ctx *gin.Context) {
	d, err := s.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, d)
}

// saveUpload stores the multipart file field in a temporary directory. The
// returned cleanup removes it.
func saveUpload(ctx *gin.Context, field string) (string, func(), error) {
	file, err := ctx.FormFile(field)
	if err != nil {
		return "", func() {}, err
	}

	dir, err := os.MkdirTemp("", "denuncia-upload-")
	if err != nil {
		return "", func() {}, err
	}

	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.WithError(err).Warn("removing upload directory")
		}
	}

	dst := filepath.Join(dir, filepath.Base(file.Filename))
	if err := ctx.SaveUploadedFile(file, dst); err != nil {
		cleanup()

		return "", func() {}, err
	}

	return dst, cleanup, nil
}

func submissionFromForm(ctx *gin.Context) (Submission, error) {
	sub := Submission{
		Category:       ctx.PostForm("category"),
		CustomCategory: ctx.PostForm("custom_category"),
		Description:    ctx.PostForm("description"),
		Address: location.Address{
			Street:       ctx.PostForm("street"),
			Neighborhood: ctx.PostForm("neighborhood"),
			City:         ctx.PostForm("city"),
			State:        ctx.PostForm("state"),
		},
	}

	if v := ctx.PostForm("is_anonymous"); v != "" {
		anon, err := strconv.ParseBool(v)
		if err != nil {
			return sub, errors.New("is_anonymous inválido")
		}

		sub.IsAnonymous = anon
	}

	lat, lon := ctx.PostForm("lat"), ctx.PostForm("lon")
	if lat != "" && lon != "" {
		p, err := parsePoint(lat, lon)
		if err != nil {
			return sub, err
		}

		sub.Point = &p
	}

	return sub, nil
}

func parsePoint(lat, lon string) (spatial.Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return spatial.Point{}, errors.New("latitude inválida")
	}

	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return spatial.Point{}, errors.New("longitude inválida")
	}

	p := spatial.Point{Lat: la, Lng: lo}
	if !p.Valid() {
		return spatial.Point{}, errors.New("coordenadas fora do intervalo")
	}

	return p, nil
}

func (s *Server) createDenunciation(ctx *gin.Context) {
	var (
		sub       Submission
		imagePath string
	)

	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		var err error

		sub, err = submissionFromForm(ctx)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}

		if _, err := ctx.FormFile("image"); err == nil {
			path, cleanup, err := saveUpload(ctx, "image")
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

				return
			}
			defer cleanup()

			imagePath = path
		}
	} else if err := ctx.ShouldBindJSON(&sub); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if sub.Point != nil && !sub.Point.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "coordenadas fora do intervalo"})

		return
	}

	res, err := s.service.Submit(ctx.Request.Context(), sub, imagePath)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusCreated, res)
}

func (s *Server) attachImage(ctx *gin.Context) {
	path, cleanup, err := saveUpload(ctx, "image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "envie a imagem no campo 'image'"})

		return
	}
	defer cleanup()

	imageURL, err := s.service.AttachImage(ctx.Request.Context(), ctx.Param("id"), path)
	if err != nil {
		var linkErr *LinkError
		if errors.As(err, &linkErr) {
			ctx.JSON(http.StatusAccepted, gin.H{"image_url": linkErr.URL, "warning": err.Error()})

			return
		}

		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"image_url": imageURL})
}

type linkRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

func (s *Server) linkImage(ctx *gin.Context) {
	var req linkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := s.service.LinkImage(ctx.Request.Context(), ctx.Param("id"), req.ImageURL); err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"image_url": req.ImageURL})
}

type voteRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (s *Server) vote(ctx *gin.Context) {
	var req voteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	kind, err := ParseVoteKind(req.Kind)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	res, err := s.service.Vote(ctx.Request.Context(), ctx.Param("id"), kind)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, res)
}

// signOut ends the session of the request user.
func (s *Server) signOut(ctx *gin.Context) {
	if err := s.service.SignOut(ctx.Request.Context()); err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.Status(http.StatusNoContent)
}

// resolveLocation runs the resolver on a fix reported by the device. An
// optional fix_time tells when the device took the fix.
func (s *Server) resolveLocation(ctx *gin.Context) {
	p, err := parsePoint(ctx.Query("lat"), ctx.Query("lon"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	sensor := location.NewStaticSensor(p)

	if raw := ctx.Query("fix_time"); raw != "" {
		at, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "fix_time inválido, use RFC 3339"})

			return
		}

		sensor.Update(location.Fix{Point: p, Time: at})
	}

	resolver := location.NewResolver(location.GrantedPermissions{}, sensor, s.opts.Geocoder)
	resolver.GeocodeTimeout = s.opts.GeocodeTimeout
	resolver.Metrics = s.opts.Metrics

	var res *location.Result

	if coordsOnly, _ := strconv.ParseBool(ctx.Query("coords_only")); coordsOnly {
		res, err = resolver.ResolveCoordinates(ctx.Request.Context())
	} else {
		res, err = resolver.Resolve(ctx.Request.Context())
	}

	if err != nil {
		s.fail(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, res)
}
