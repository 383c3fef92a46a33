// SPDX-FileCopyrightText: 2018 - 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package powercontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerDropStore_DefaultsToNoWhenMissing(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	assert.False(t, store.read())
}

func TestPowerDropStore_InitializeWritesNo(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	require.NoError(t, store.initialize())
	assert.False(t, store.read())
}

func TestPowerDropStore_StoreAndClear(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	require.NoError(t, store.initialize())

	require.NoError(t, store.store())
	assert.True(t, store.read())

	require.NoError(t, store.clear())
	assert.False(t, store.read())
}

func TestPowerDropStore_ReadFailureDefaultsFalse(t *testing.T) {
	store := newPowerDropStore(t.TempDir())
	// No initialize(), no store(): the file never existed.
	assert.False(t, store.read())
}
