package msgstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEntry(uniqueId, transactionId string) *Entry {
	return &Entry{
		UniqueId:      uniqueId,
		Action:        "TransactionEvent",
		Payload:       json.RawMessage(`{"eventType":"Started"}`),
		TransactionId: transactionId,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestStoreAppendKeepsOrder(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Append(testEntry("id-1", "tx-1"))
	require.NoError(t, err)
	second, err := store.Append(testEntry("id-2", "tx-2"))
	require.NoError(t, err)
	assert.Greater(t, second, first)

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "id-1", entries[0].UniqueId)
	assert.Equal(t, "id-2", entries[1].UniqueId)
	assert.Equal(t, first, entries[0].Seq)
}

func TestStoreDelete(t *testing.T) {
	store := openTestStore(t)

	seq, err := store.Append(testEntry("id-1", "tx-1"))
	require.NoError(t, err)
	_, err = store.Append(testEntry("id-2", "tx-2"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(seq))

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "id-2", entries[0].UniqueId)
}

func TestStoreUpdate(t *testing.T) {
	store := openTestStore(t)

	entry := testEntry("id-1", "tx-1")
	seq, err := store.Append(entry)
	require.NoError(t, err)

	entry.Seq = seq
	entry.Attempts = 2
	require.NoError(t, store.Update(entry))

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Attempts)
}

func TestStoreKeyValue(t *testing.T) {
	store := openTestStore(t)

	value, err := store.GetValue("boot_reason")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SetValue("boot_reason", "RemoteReset"))
	value, err = store.GetValue("boot_reason")
	require.NoError(t, err)
	assert.Equal(t, "RemoteReset", value)
}
