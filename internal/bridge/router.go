// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package bridge

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/vox-deorum/voxd/internal/config"
)

// Router builds the Bridge Service's HTTP surface (spec §4.2, §6).
func (b *Bridge) Router(corsCfg config.CORSConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	c := cors.New(cors.Options{
		AllowedOrigins:   corsCfg.Origin,
		AllowedMethods:   corsCfg.Methods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		AllowCredentials: corsCfg.Credentials,
	})
	r.Use(c.Handler)

	r.Post("/lua/call", b.handleLuaCall)
	r.Post("/lua/batch", b.handleLuaBatch)
	r.Post("/lua/execute", b.handleLuaExecute)
	r.Get("/lua/functions", b.handleLuaFunctions)

	r.Post("/external/register", b.handleRegisterExternal)
	r.Delete("/external/register/{name}", b.handleUnregisterExternal)
	r.Get("/external/functions", b.handleExternalFunctions)
	r.Post("/external/pause-player/{id}", b.handlePausePlayer)
	r.Delete("/external/pause-player/{id}", b.handleResumePlayer)

	r.Get("/events", b.handleEvents)
	r.Get("/events/ws", b.handleEventsWS)

	r.Get("/health", b.handleHealth)
	r.Get("/stats", b.handleStats)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
