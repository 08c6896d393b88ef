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

// Package bands serves band window queries on App Engine.  Contig lists are
// read from the JSON file named by REFERENCE_FILE, or from the service at
// REFERENCE_URL.
package bands

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/appengine"

	"github.com/googlegenomics/bands/api"
	"github.com/googlegenomics/bands/internal/blob"
	"github.com/googlegenomics/bands/internal/reference"
)

func init() {
	service, err := newReferenceService()
	if err != nil {
		log.Fatalf("Failed to configure reference genomes: %v", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	server := api.NewServer(reference.NewOrder(service), newAppEngineClient)
	if list := os.Getenv("BUCKET_WHITELIST"); list != "" {
		server.Whitelist(strings.Split(list, ","))
	}
	server.Export(router)
	http.Handle("/", router)
}

func newReferenceService() (reference.Service, error) {
	if base := os.Getenv("REFERENCE_URL"); base != "" {
		return reference.NewHTTPService(base, nil), nil
	}
	f, err := os.Open(os.Getenv("REFERENCE_FILE"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return reference.ReadStaticService(f)
}

func newAppEngineClient(req *http.Request) (blob.Client, error) {
	return blob.NewClientFromBearerToken(req.WithContext(appengine.NewContext(req)))
}
