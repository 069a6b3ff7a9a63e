// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testing provides test helpers for zimrs integration tests.
//
// It wraps pkg/storage with seeding and querying utilities so package tests
// don't have to hand-write SQL against the schema.
//
// # Quick Start
//
//	func TestMyFeature(t *testing.T) {
//	    store := testing.SetupTestStore(t)
//
//	    pageID := testing.InsertTestPage(t, store, "A", "A/Dog", "Dog", "...")
//	    testing.InsertTestDefinition(t, store, pageID, "English", "noun", "A mammal.", 1)
//
//	    titles := testing.QueryPageTitles(t, store)
//	    require.Len(t, titles, 1)
//	}
package testing
