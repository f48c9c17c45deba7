package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var order = []record.EntityType{"Account", "Contact"}

func newAccount(name string) *record.Record {
	r := record.New("Account")
	r.Set("Name", name)
	return r
}

func TestMemory_CommitResolvesParentLinks(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	acct := newAccount("Acme")
	contact := record.New("Contact")
	contact.Set("Email", "a@acme.test")

	uow := mem.NewUnitOfWork(order)
	// child first: the unit of work orders by type, not by registration
	uow.RegisterNew(contact)
	uow.RegisterRelationship(contact, "AccountId", acct)
	uow.RegisterNew(acct)
	require.Equal(t, 2, uow.Len())

	require.NoError(t, uow.Commit(ctx))

	require.True(t, acct.Persisted())
	require.True(t, contact.Persisted())
	v, _ := contact.Get("AccountId")
	assert.Equal(t, acct.ID, v)

	stored := mem.Records("Contact")
	require.Len(t, stored, 1)
	got, _ := stored[0].Get("AccountId")
	assert.Equal(t, acct.ID, got)

	byID, ok := mem.Get(acct.ID)
	require.True(t, ok)
	name, _ := byID.Get("Name")
	assert.Equal(t, "Acme", name)
}

func TestMemory_ExternalReferenceLookup(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	first := mem.NewUnitOfWork(order)
	acct := newAccount("Acme")
	acct.Set("ExternalKey", "EXT-1")
	first.RegisterNew(acct)
	require.NoError(t, first.Commit(ctx))

	second := mem.NewUnitOfWork(order)
	contact := record.New("Contact")
	second.RegisterExternalRelationship(contact, "AccountId", record.Descriptor{Entity: "Account", Field: "ExternalKey"}, "EXT-1")
	require.NoError(t, second.Commit(ctx))

	v, _ := contact.Get("AccountId")
	assert.Equal(t, acct.ID, v)
}

func TestMemory_FailedCommitMutatesNothing(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	acct := newAccount("Acme")
	contact := record.New("Contact")

	uow := mem.NewUnitOfWork(order)
	uow.RegisterNew(acct)
	uow.RegisterExternalRelationship(contact, "AccountId", record.Descriptor{Entity: "Account", Field: "ExternalKey"}, "missing")

	err := uow.Commit(ctx)
	require.ErrorIs(t, err, ErrUnresolvedReference)
	assert.False(t, acct.Persisted())
	assert.False(t, contact.Persisted())
	assert.Empty(t, mem.Records("Account"))
}

func TestMemory_TypeNotOrdered(t *testing.T) {
	uow := NewMemory().NewUnitOfWork(order)
	uow.RegisterNew(record.New("Lead"))
	assert.ErrorIs(t, uow.Commit(context.Background()), ErrTypeNotOrdered)
}

func TestMemory_UnresolvedParent(t *testing.T) {
	uow := NewMemory().NewUnitOfWork(order)
	contact := record.New("Contact")
	uow.RegisterNew(contact)
	// parent is neither persisted nor queued; only the relationship mentions it
	orphanParent := newAccount("Ghost")
	uow.RegisterRelationship(contact, "AccountId", orphanParent)

	// RegisterRelationship never queues the parent itself
	assert.Equal(t, 1, uow.Len())
	assert.ErrorIs(t, uow.Commit(context.Background()), ErrUnresolvedParent)
}

func TestMemory_SkipsAlreadyPersisted(t *testing.T) {
	mem := NewMemory()
	acct := newAccount("Acme")
	acct.ID = "existing"

	uow := mem.NewUnitOfWork(order)
	uow.RegisterNew(acct)
	require.NoError(t, uow.Commit(context.Background()))
	assert.Equal(t, "existing", acct.ID)
	assert.Empty(t, mem.Records("Account"))
}

func TestSQL_SQLiteCommitAndReadBack(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQL(ctx, SQLite, filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	acct := newAccount("Acme")
	acct.Set("ExternalKey", "EXT-1")
	contact := record.New("Contact")
	contact.Set("Email", "a@acme.test")

	uow := db.NewUnitOfWork(order)
	uow.RegisterNew(acct)
	uow.RegisterNew(contact)
	uow.RegisterRelationship(contact, "AccountId", acct)
	require.NoError(t, uow.Commit(ctx))

	contacts, err := db.Records(ctx, "Contact")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, contact.ID, contacts[0].ID)
	v, _ := contacts[0].Get("AccountId")
	assert.Equal(t, acct.ID, v)

	// a later unit of work links by external id
	late := record.New("Contact")
	next := db.NewUnitOfWork(order)
	next.RegisterExternalRelationship(late, "AccountId", record.Descriptor{Entity: "Account", Field: "ExternalKey"}, "EXT-1")
	require.NoError(t, next.Commit(ctx))
	v, _ = late.Get("AccountId")
	assert.Equal(t, acct.ID, v)
}

func TestSQL_SQLiteUnresolvedReferenceRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQL(ctx, SQLite, filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	acct := newAccount("Acme")
	contact := record.New("Contact")
	uow := db.NewUnitOfWork(order)
	uow.RegisterNew(acct)
	uow.RegisterExternalRelationship(contact, "AccountId", record.Descriptor{Entity: "Account", Field: "ExternalKey"}, "nope")

	require.ErrorIs(t, uow.Commit(ctx), ErrUnresolvedReference)
	accounts, err := db.Records(ctx, "Account")
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.False(t, acct.Persisted())
}

func TestDialect_Rebind(t *testing.T) {
	assert.Equal(t, "SELECT ? , ?", SQLite.rebind("SELECT ? , ?"))
	assert.Equal(t, "SELECT $1 , $2", Postgres.rebind("SELECT ? , ?"))

	d, ok := DialectByName("postgres")
	require.True(t, ok)
	assert.Equal(t, "pgx", d.Name)
	_, ok = DialectByName("oracle")
	assert.False(t, ok)
}

func TestAllowPrivileged(t *testing.T) {
	ctx := context.Background()
	assert.True(t, AllowPrivileged(true).AllowPrivileged(ctx))
	assert.False(t, DenyPrivileged.AllowPrivileged(ctx))
}
