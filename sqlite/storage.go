package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/passvault/passvault-sdk-golang/api"
	"github.com/passvault/passvault-sdk-golang/storage"
)

type ConnectionGetter func() *sqlx.DB

// uidValues shapes a uid list into per-row filter values for a single column.
func uidValues[K storage.Key](uids []K) [][]interface{} {
	var values = make([][]interface{}, len(uids))
	for i, uid := range uids {
		values[i] = []interface{}{uid}
	}
	return values
}

func NewSqliteRecordStorage[T any](
	getConnection ConnectionGetter, schema ITableSchema, ownerValue interface{}) (rto storage.IRecordStorage[T], err error) {

	rto = &sqliteRecordStorage[T]{
		sqliteStorage[T]{
			getConnection: getConnection,
			schema:        schema,
			ownerValue:    ownerValue,
			queryCache:    make(map[string]string),
		},
	}
	return
}

type sqliteRecordStorage[T any] struct {
	sqliteStorage[T]
}

func (srs *sqliteRecordStorage[T]) Load() (record T, err error) {
	err = srs.SelectAll(func(r T) bool {
		record = r
		return false
	})
	return
}
func (srs *sqliteRecordStorage[T]) Store(record T) error {
	return srs.Put([]T{record})
}
func (srs *sqliteRecordStorage[T]) Delete() error {
	return srs.DeleteAll()
}

// NewSqliteEntityStorage maps an entity storage onto a table whose primary
// key is the single uid column.
func NewSqliteEntityStorage[T any, K storage.Key](
	getConnection ConnectionGetter, schema ITableSchema, ownerValue interface{}) (sto storage.IEntityStorage[T, K], err error) {
	if len(schema.PrimaryKey()) != 1 {
		err = api.NewVaultError(fmt.Sprintf(
			"SqliteEntityStorage (%s): primary key must be the uid column", schema.TableName()))
		return
	}
	sto = &sqliteEntityStorage[T, K]{
		sqliteStorage[T]{
			getConnection: getConnection,
			schema:        schema,
			ownerValue:    ownerValue,
			queryCache:    make(map[string]string),
		},
	}
	return
}

type sqliteEntityStorage[T any, K storage.Key] struct {
	sqliteStorage[T]
}

func (ses *sqliteEntityStorage[T, K]) GetEntity(uid K) (entity T, err error) {
	var found = false
	var dupErr error
	err = ses.SelectFilter(ses.schema.PrimaryKey(), [][]interface{}{{uid}}, func(row T) bool {
		if found {
			dupErr = api.NewVaultError(fmt.Sprintf(
				"GetEntity (%s): multiple rows for uid %v", ses.schema.TableName(), uid))
			return false
		}
		entity = row
		found = true
		return true
	})
	if err == nil {
		err = dupErr
	}
	return
}
func (ses *sqliteEntityStorage[T, K]) GetAll(cb func(T) bool) error {
	return ses.SelectAll(cb)
}
func (ses *sqliteEntityStorage[T, K]) PutEntities(entities []T) error {
	return ses.Put(entities)
}
func (ses *sqliteEntityStorage[T, K]) DeleteUids(uids []K) error {
	return ses.DeleteFilter(ses.schema.PrimaryKey(), uidValues(uids))
}
func (ses *sqliteEntityStorage[T, K]) Clear() error {
	return ses.DeleteAll()
}

// NewSqliteLinkStorage maps a link storage onto a table whose primary key is
// the (subject uid, object uid) column pair, in that order.
func NewSqliteLinkStorage[T any, KS storage.Key, KO storage.Key](
	getConnection ConnectionGetter, schema ITableSchema,
	ownerValue interface{}) (sto storage.ILinkStorage[T, KS, KO], err error) {
	if len(schema.PrimaryKey()) != 2 {
		err = api.NewVaultError(fmt.Sprintf(
			"SqliteLinkStorage (%s): primary key must be the (subject, object) column pair", schema.TableName()))
		return
	}
	sto = &sqliteLinkStorage[T, KS, KO]{
		sqliteStorage[T]{
			getConnection: getConnection,
			schema:        schema,
			ownerValue:    ownerValue,
			queryCache:    make(map[string]string),
		},
	}
	return
}

type sqliteLinkStorage[T any, KS storage.Key, KO storage.Key] struct {
	sqliteStorage[T]
}

func (sls *sqliteLinkStorage[T, KS, KO]) subjectColumn() []string {
	return sls.schema.PrimaryKey()[:1]
}

func (sls *sqliteLinkStorage[T, KS, KO]) GetLink(subjectUid KS, objectUid KO) (link T, err error) {
	err = sls.SelectFilter(sls.schema.PrimaryKey(), [][]interface{}{{subjectUid, objectUid}}, func(row T) bool {
		link = row
		return false
	})
	return
}
func (sls *sqliteLinkStorage[T, KS, KO]) GetLinksForSubjects(subjects []KS, cb func(T) bool) error {
	return sls.SelectFilter(sls.subjectColumn(), uidValues(subjects), cb)
}
func (sls *sqliteLinkStorage[T, KS, KO]) GetAll(cb func(T) bool) error {
	return sls.SelectAll(cb)
}
func (sls *sqliteLinkStorage[T, KS, KO]) PutLinks(links []T) error {
	return sls.Put(links)
}
func (sls *sqliteLinkStorage[T, KS, KO]) DeleteLinks(links []storage.IUidLink[KS, KO]) error {
	var values = make([][]interface{}, len(links))
	for i, link := range links {
		values[i] = []interface{}{link.SubjectUid(), link.ObjectUid()}
	}
	return sls.DeleteFilter(sls.schema.PrimaryKey(), values)
}
func (sls *sqliteLinkStorage[T, KS, KO]) DeleteLinksForSubjects(subjects []KS) error {
	return sls.DeleteFilter(sls.subjectColumn(), uidValues(subjects))
}
func (sls *sqliteLinkStorage[T, KS, KO]) Clear() error {
	return sls.DeleteAll()
}
