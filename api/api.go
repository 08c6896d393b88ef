// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the HTTP interface of the band window query
// service.
//
// The routes are:
//
//   GET    /genomes                  reference genomes
//   GET    /genomes/:genome/contigs  ordered contigs of a genome
//   GET    /tracks                   loaded tracks
//   PUT    /tracks/:name             load a track from storage
//   DELETE /tracks/:name             unload a track
//   GET    /attributes               attributes usable in filters
//   POST   /filters                  validate a filter query
//   POST   /query                    run a window query
//
// Errors are returned as a JSON object with an "error" name and a "message".
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/googlegenomics/bands/internal/analytics"
	"github.com/googlegenomics/bands/internal/blob"
	"github.com/googlegenomics/bands/internal/filter"
	"github.com/googlegenomics/bands/internal/genomics"
	"github.com/googlegenomics/bands/internal/query"
	"github.com/googlegenomics/bands/internal/records"
	"github.com/googlegenomics/bands/internal/reference"
	"github.com/googlegenomics/bands/internal/registry"
	"github.com/googlegenomics/bands/internal/status"
	"github.com/googlegenomics/bands/internal/track"
)

var (
	errMissingGenome = errors.New("no reference genome specified")
	errMissingObject = errors.New("no object specified")
)

// NewStorageClientFunc constructs the storage client used to load the
// tracks requested by a request.
type NewStorageClientFunc func(*http.Request) (blob.Client, error)

// Server serves band queries.  Must be created with NewServer.
type Server struct {
	order            *reference.Order
	tracks           *registry.Registry
	attributes       *filter.Registry
	engine           *query.Engine
	newStorageClient NewStorageClientFunc
	database         *records.SQLSource
	whitelist        map[string]bool

	// loads serializes track loading so that attributes and tracks are
	// registered together.
	loads sync.Mutex
}

// NewServer returns a server that orders coordinates with order and loads
// tracks through newStorageClient.  The default BED attributes are
// registered.
func NewServer(order *reference.Order, newStorageClient NewStorageClientFunc) *Server {
	tracks := registry.New()
	attributes := filter.NewRegistry(records.BEDAttributes()...)
	return &Server{
		order:            order,
		tracks:           tracks,
		attributes:       attributes,
		engine:           query.NewEngine(tracks, order, attributes),
		newStorageClient: newStorageClient,
		whitelist:        make(map[string]bool),
	}
}

// Whitelist adds buckets to the set of buckets tracks may be loaded from.
// If Whitelist is never called every bucket is allowed.
func (server *Server) Whitelist(buckets []string) {
	for _, bucket := range buckets {
		server.whitelist[bucket] = true
	}
}

// UseDatabase enables loading tracks in the SQL format from source.
func (server *Server) UseDatabase(source *records.SQLSource) {
	server.database = source
}

// Export registers the API routes with router.
func (server *Server) Export(router gin.IRouter) {
	router.Use(forwardOrigin)
	router.GET("/genomes", server.listGenomes)
	router.GET("/genomes/:genome/contigs", server.listContigs)
	router.GET("/tracks", server.listTracks)
	router.PUT("/tracks/:name", server.putTrack)
	router.DELETE("/tracks/:name", server.deleteTrack)
	router.GET("/attributes", server.listAttributes)
	router.POST("/filters", server.checkFilter)
	router.POST("/query", server.query)
}

// LoadTrack reads a track from storage and registers it as name, replacing
// any track with the same name.
func (server *Server) LoadTrack(ctx context.Context, client blob.Client, name string, spec *TrackSpec) (*TrackInfo, bool, error) {
	if spec.Genome == "" {
		return nil, false, newInvalidInputError("loading track", errMissingGenome)
	}
	if spec.Object == "" {
		return nil, false, newInvalidInputError("loading track", errMissingObject)
	}
	if spec.Format != records.SQL {
		if err := server.checkWhitelist(spec.Bucket); err != nil {
			return nil, false, err
		}
	}

	loader := &records.Loader{Blobs: client, DB: server.database}
	data, err := loader.Load(ctx, spec.Bucket, spec.Object, spec.Format)
	if err != nil {
		return nil, false, err
	}
	idx, err := track.Build(ctx, name, spec.Genome, server.order, data.Records)
	if err != nil {
		return nil, false, err
	}

	server.loads.Lock()
	defer server.loads.Unlock()
	if err := server.attributes.Register(data.Attributes...); err != nil {
		return nil, false, fmt.Errorf("loading track %q: %w", name, err)
	}
	replaced := server.tracks.Add(name, idx)
	return describe(name, idx), replaced, nil
}

func (server *Server) checkWhitelist(bucket string) error {
	if len(server.whitelist) == 0 || server.whitelist[bucket] {
		return nil
	}
	return status.Errorf(status.AccessDenied, "access to bucket %s is not allowed", bucket)
}

func (server *Server) listGenomes(c *gin.Context) {
	genomes, err := server.order.ReferenceGenomes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genomes": genomes})
}

func (server *Server) listContigs(c *gin.Context) {
	genome := genomics.ReferenceGenome(c.Param("genome"))
	contigs, err := server.order.Contigs(c.Request.Context(), genome)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genome": genome, "contigs": contigs})
}

// TrackSpec locates the records of a track.
type TrackSpec struct {
	Genome genomics.ReferenceGenome `json:"genome"`
	Bucket string                   `json:"bucket"`
	Object string                   `json:"object"`
	// Format is derived from the object name if empty.
	Format records.Format `json:"format,omitempty"`
}

// TrackInfo describes a loaded track.
type TrackInfo struct {
	Name   string                   `json:"name"`
	Genome genomics.ReferenceGenome `json:"genome,omitempty"`
	Bands  int                      `json:"bands"`
}

type describer interface {
	Genome() genomics.ReferenceGenome
	Len() int
}

func describe(name string, src track.Source) *TrackInfo {
	info := &TrackInfo{Name: name}
	if d, ok := src.(describer); ok {
		info.Genome = d.Genome()
		info.Bands = d.Len()
	}
	return info
}

func (server *Server) listTracks(c *gin.Context) {
	infos := []*TrackInfo{}
	for _, name := range server.tracks.List() {
		src, err := server.tracks.Get(name)
		if err != nil {
			// Removed since List.
			continue
		}
		infos = append(infos, describe(name, src))
	}
	c.JSON(http.StatusOK, gin.H{"tracks": infos})
}

func (server *Server) putTrack(c *gin.Context) {
	ctx := c.Request.Context()
	track := analytics.TrackerFromContext(ctx)

	var spec TrackSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		writeError(c, newInvalidInputError("decoding track", err))
		return
	}

	var client blob.Client
	if spec.Format != records.SQL {
		var err error
		if client, err = server.newStorageClient(c.Request); err != nil {
			writeError(c, err)
			return
		}
	}

	info, replaced, err := server.LoadTrack(ctx, client, c.Param("name"), &spec)
	if err != nil {
		track(analytics.TrackEvent("load failed", string(spec.Format)))
		writeError(c, err)
		return
	}
	track(analytics.TrackEvent("add", string(spec.Format)))

	code := http.StatusCreated
	if replaced {
		code = http.StatusOK
	}
	c.JSON(code, info)
}

func (server *Server) deleteTrack(c *gin.Context) {
	if _, err := server.tracks.Remove(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	analytics.TrackerFromContext(c.Request.Context())(analytics.TrackEvent("remove", ""))
	c.Status(http.StatusNoContent)
}

func (server *Server) listAttributes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"attributes": server.attributes.List()})
}

func (server *Server) checkFilter(c *gin.Context) {
	var q filter.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		writeError(c, newInvalidInputError("decoding filter", err))
		return
	}
	if _, err := server.engine.CompileFilter(&q); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// QueryRequest is the body of a window query.  A null filter matches every
// band of its track.
type QueryRequest struct {
	Anchor genomics.Coordinate      `json:"anchor"`
	Left   int                      `json:"left"`
	Right  int                      `json:"right"`
	Tracks map[string]*filter.Query `json:"tracks"`
}

func (server *Server) query(c *gin.Context) {
	ctx := c.Request.Context()

	var body QueryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, newInvalidInputError("decoding query", err))
		return
	}

	req := &query.Request{
		Anchor: body.Anchor,
		Left:   body.Left,
		Right:  body.Right,
		Tracks: make(map[string]*filter.Filter, len(body.Tracks)),
	}
	names := make([]string, 0, len(body.Tracks))
	for name := range body.Tracks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f, err := server.engine.CompileFilter(body.Tracks[name])
		if err != nil {
			writeError(c, fmt.Errorf("filter of track %q: %w", name, err))
			return
		}
		req.Tracks[name] = f
	}

	result, err := server.engine.Query(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	analytics.TrackerFromContext(ctx)(analytics.QueryEvent(len(req.Tracks), req.Left, req.Right))
	c.JSON(http.StatusOK, result)
}

// apiError is a request that could not be decoded.
type apiError struct {
	name  string
	code  int
	cause error
}

func (err *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %v", err.name, err.code, err.cause)
}

func newInvalidInputError(context string, err error) error {
	return &apiError{"InvalidInput", http.StatusBadRequest, fmt.Errorf("%s: %v", context, err)}
}

var kindCodes = map[status.Kind]int{
	status.NotFound:         http.StatusNotFound,
	status.InvalidInput:     http.StatusBadRequest,
	status.MalformedData:    http.StatusUnprocessableEntity,
	status.PermissionDenied: http.StatusForbidden,
}

// writeError writes a JSON object describing err.  Errors without a name
// are written as bare internal server errors.
func writeError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		writeJSONError(c, apiErr.code, apiErr.name, apiErr.cause)
		return
	}
	if code, ok := kindCodes[status.KindOf(err)]; ok {
		writeJSONError(c, code, status.NameOf(err), err)
		return
	}
	c.String(http.StatusInternalServerError, "%s: %v", http.StatusText(http.StatusInternalServerError), err)
}

func writeJSONError(c *gin.Context, code int, name string, err error) {
	c.JSON(code, gin.H{
		"error":   name,
		"message": fmt.Sprintf("%s: %v", http.StatusText(code), err),
	})
}

func forwardOrigin(c *gin.Context) {
	if origin := c.GetHeader("Origin"); origin != "" {
		c.Header("Access-Control-Allow-Origin", origin)
	}
	c.Next()
}
