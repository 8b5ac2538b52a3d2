// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package convex

import "github.com/tombee/appconn/internal/connection"

// Methods lists the supported authentication methods.
func Methods() []connection.Method {
	return []connection.Method{connection.MethodAdminKey}
}

// ListItem returns the listing descriptor for Convex connections.
func ListItem() connection.ListItem {
	return connection.ListItem{
		Name:    "Convex",
		App:     connection.AppConvex,
		Methods: Methods(),
	}
}
