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

// This binary serves band window queries over tracks loaded from GCS, a local
// directory or a MySQL database.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pkg/profile"
	"golang.org/x/oauth2/google"

	"github.com/googlegenomics/bands/api"
	"github.com/googlegenomics/bands/internal/analytics"
	"github.com/googlegenomics/bands/internal/blob"
	"github.com/googlegenomics/bands/internal/records"
	"github.com/googlegenomics/bands/internal/reference"
)

const referenceScope = "https://www.googleapis.com/auth/cloud-platform.read-only"

var (
	port = flag.Int("port", 80, "HTTP service port")

	secure    = flag.Bool("secure", false, "serve in HTTPS-only mode and forward client bearer tokens")
	httpsCert = flag.String("https_cert", "", "HTTPS certificate file")
	httpsKey  = flag.String("https_key", "", "HTTPS key file")

	buckets   = flag.String("buckets", "", "if set, restricts reads to a comma-separated list of buckets")
	directory = flag.String("directory", "", "if set, read buckets from subdirectories of this directory instead of GCS")

	referenceFile   = flag.String("reference_file", "", "JSON file of contig lists by reference genome")
	referenceURL    = flag.String("reference_url", "", "base URL of a contig list service")
	referenceBucket = flag.String("reference_bucket", "", "bucket holding one FASTA index per reference genome")
	referencePrefix = flag.String("reference_prefix", "", "object prefix of the FASTA indexes in -reference_bucket")

	redisAddr = flag.String("redis_addr", "", "if set, share contig lists through the redis server at this address")
	redisTTL  = flag.Duration("redis_ttl", 24*time.Hour, "lifetime of contig lists cached in redis")

	mysqlDSN   = flag.String("mysql_dsn", "", "if set, enables the sql track format backed by this MySQL database")
	mysqlTable = flag.String("mysql_table", "bands", "table holding the bands of the sql track format")

	profileDir = flag.String("profile", "", "if set, write a CPU profile to this directory")

	// Enable or disable anonymous usage tracking.
	//
	// If enabled, anonymous information about requests handled by the server is
	// logged to Google via Google Analytics.  No user identifying information
	// is ever sent to Google.
	trackUsage = flag.Bool("track_usage", false, "anonymous usage tracking")
)

func main() {
	flag.Parse()

	if *secure && (*httpsCert == "" || *httpsKey == "") {
		log.Fatalf("You must specify both -https_cert and -https_key in secure mode.")
	}
	if *secure && *directory != "" {
		log.Fatalf("-directory cannot be used in secure mode.")
	}
	if *profileDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*profileDir)).Stop()
	}

	ctx := context.Background()

	service, err := newReferenceService(ctx)
	if err != nil {
		log.Fatalf("Failed to configure reference genomes: %v", err)
	}
	if *redisAddr != "" {
		log.Printf("Caching contig lists in redis at %s", *redisAddr)
		cache := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer cache.Close()
		service = reference.NewRedisCache(service, cache, *redisTTL)
	}

	server := api.NewServer(reference.NewOrder(service), newStorageClientFunc())
	if *buckets != "" {
		server.Whitelist(strings.Split(*buckets, ","))
	}

	if *mysqlDSN != "" {
		db, err := sql.Open("mysql", *mysqlDSN)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()

		source, err := records.NewSQLSource(ctx, db, *mysqlTable)
		if err != nil {
			log.Fatalf("Failed to prepare database queries: %v", err)
		}
		defer source.Close()
		server.UseDatabase(source)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if *trackUsage {
		log.Printf("Enabling anonymous usage tracking")

		client := analytics.NewClient("UA-103022118-1", uuid.New().String(), nil)
		router.Use(analytics.Middleware(func(c *gin.Context, hits []analytics.Hit) {
			if err := client.Send(c.Request.Context(), hits); err != nil {
				log.Printf("Failed to send %d hits to analytics: %v", len(hits), err)
			}
		}))
	}
	server.Export(router)

	address := fmt.Sprintf(":%d", *port)
	if *secure {
		if err := http.ListenAndServeTLS(address, *httpsCert, *httpsKey, router); err != nil {
			log.Fatalf("HTTPS server returned an error: %v", err)
		}
	} else {
		if err := http.ListenAndServe(address, router); err != nil {
			log.Fatalf("HTTP server returned an error: %v", err)
		}
	}
}

func newStorageClientFunc() api.NewStorageClientFunc {
	switch {
	case *directory != "":
		client := blob.DirectoryClient{Root: *directory}
		return func(*http.Request) (blob.Client, error) { return client, nil }
	case *secure:
		return blob.NewClientFromBearerToken
	default:
		return func(*http.Request) (blob.Client, error) { return blob.NewPublicClient() }
	}
}

func newReferenceService(ctx context.Context) (reference.Service, error) {
	switch {
	case *referenceFile != "":
		f, err := os.Open(*referenceFile)
		if err != nil {
			return nil, fmt.Errorf("opening contig lists: %v", err)
		}
		defer f.Close()
		return reference.ReadStaticService(f)
	case *referenceURL != "":
		source, err := google.DefaultTokenSource(ctx, referenceScope)
		if err != nil {
			log.Printf("No default credentials, querying %s anonymously: %v", *referenceURL, err)
			return reference.NewHTTPService(*referenceURL, nil), nil
		}
		return reference.NewAuthorizedHTTPService(ctx, *referenceURL, source), nil
	case *referenceBucket != "":
		var client blob.Client = blob.DirectoryClient{Root: *directory}
		if *directory == "" {
			var err error
			if client, err = blob.NewDefaultClient(); err != nil {
				return nil, fmt.Errorf("creating storage client: %v", err)
			}
		}
		return reference.NewFAIService(client, *referenceBucket, *referencePrefix), nil
	}
	return nil, fmt.Errorf("one of -reference_file, -reference_url or -reference_bucket is required")
}
