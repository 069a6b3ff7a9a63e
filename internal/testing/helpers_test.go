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

package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSetupTestStore verifies the test store opens with an empty, migrated schema.
func TestSetupTestStore(t *testing.T) {
	store := SetupTestStore(t)
	require.NotNil(t, store)

	titles := QueryPageTitles(t, store)
	assert.Empty(t, titles, "should start with no pages")
}

// TestInsertTestPage verifies page insertion.
func TestInsertTestPage(t *testing.T) {
	store := SetupTestStore(t)

	InsertTestPage(t, store, "A", "A/Dog", "Dog", "A domesticated mammal.")

	titles := QueryPageTitles(t, store)
	require.Len(t, titles, 1)
	assert.Equal(t, "Dog", titles[0])
}

// TestInsertTestDefinition verifies a definition attaches to its page.
func TestInsertTestDefinition(t *testing.T) {
	store := SetupTestStore(t)

	pageID := InsertTestPage(t, store, "A", "A/Dog", "Dog", "A domesticated mammal.")
	InsertTestDefinition(t, store, pageID, "English", "noun", "A domesticated carnivorous mammal.", 1)

	assert.Equal(t, 1, CountRows(t, store, "definitions"))
}

// TestInsertTestRelation verifies a relation attaches to its page.
func TestInsertTestRelation(t *testing.T) {
	store := SetupTestStore(t)

	pageID := InsertTestPage(t, store, "A", "A/Dog", "Dog", "A domesticated mammal.")
	InsertTestRelation(t, store, pageID, "English", "synonym", "canine")

	assert.Equal(t, 1, CountRows(t, store, "relations"))
}

// TestInsertTestLemmaAlias verifies an alias attaches to its page.
func TestInsertTestLemmaAlias(t *testing.T) {
	store := SetupTestStore(t)

	pageID := InsertTestPage(t, store, "A", "A/Run", "Run", "To move fast on foot.")
	InsertTestLemmaAlias(t, store, pageID, "English", "ran", "past_tense")

	assert.Equal(t, 1, CountRows(t, store, "lemma_aliases"))
}

// TestMultipleInserts verifies multiple pages can coexist.
func TestMultipleInserts(t *testing.T) {
	store := SetupTestStore(t)

	InsertTestPage(t, store, "A", "A/Dog", "Dog", "")
	InsertTestPage(t, store, "A", "A/Cat", "Cat", "")
	InsertTestPage(t, store, "A", "A/Bird", "Bird", "")

	titles := QueryPageTitles(t, store)
	require.Len(t, titles, 3)
}

// TestStoreIsolation verifies each test gets an isolated database file.
func TestStoreIsolation(t *testing.T) {
	store1 := SetupTestStore(t)
	InsertTestPage(t, store1, "A", "A/Dog", "Dog", "")

	store2 := SetupTestStore(t)
	titles := QueryPageTitles(t, store2)
	assert.Empty(t, titles, "second store should be isolated from the first")

	titles1 := QueryPageTitles(t, store1)
	assert.Len(t, titles1, 1)
}
