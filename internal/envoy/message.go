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

// Package envoy holds EnvoyThread, the persisted chat session between a
// human operator and a dialogue agent (spec §3.5).
package envoy

// Role identifies the speaker of a message within a thread.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageMetadata carries the turn/time context a message was authored
// in, distinct from the thread's own CreatedAt/UpdatedAt bookkeeping.
type MessageMetadata struct {
	Datetime int64 `json:"datetime"`
	Turn     int   `json:"turn"`
}

// Message is one entry in an EnvoyThread's transcript (spec §3.5).
type Message struct {
	Role     Role            `json:"role"`
	Content  string          `json:"content"`
	Metadata MessageMetadata `json:"metadata"`
}
