package sqlite

import (
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/passvault/passvault-sdk-golang/api"
	"go.uber.org/zap"
)

type SqlDataType uint32

const (
	SqlDataType_Integer = iota + 1
	SqlDataType_Numeric
	SqlDataType_String
	SqlDataType_Blob
)

func (sdt SqlDataType) ToSqlType() string {
	switch sdt {
	case SqlDataType_Integer:
		return "INTEGER"
	case SqlDataType_Numeric:
		return "REAL"
	case SqlDataType_String:
		return "TEXT"
	case SqlDataType_Blob:
		return "BLOB"
	default:
		return "TEXT"
	}
}

var (
	_ IColumnSchema               = &columnSchema{}
	_ ITableSchema                = &tableSchema{}
	_ ISqliteStorage[interface{}] = &sqliteStorage[interface{}]{}
)

type IColumnSchema interface {
	ColumnName() string
	ColumnSqlType() SqlDataType
}

type ITableSchema interface {
	TableName() string
	OwnerColumn() IColumnSchema
	Columns() []IColumnSchema
	PrimaryKey() []string
	Indexes() map[string][]string
	NewEntity() interface{}
	GetColumnByName(string) IColumnSchema
}

type columnSchema struct {
	columnName    string
	columnSqlType SqlDataType
}

func (cs *columnSchema) ColumnName() string {
	return cs.columnName
}
func (cs *columnSchema) ColumnSqlType() SqlDataType {
	return cs.columnSqlType
}

type tableSchema struct {
	tableName    string
	structType   reflect.Type
	columns      []*columnSchema
	primaryKey   []string
	indexes      map[string][]string
	ownerColumn  *columnSchema
	columnLookup map[string]*columnSchema
}

func (ts *tableSchema) GetColumnByName(columnName string) IColumnSchema {
	if ts.columnLookup == nil {
		ts.columnLookup = make(map[string]*columnSchema)
		for _, x := range ts.columns {
			ts.columnLookup[strings.ToLower(x.ColumnName())] = x
		}
	}
	var cs = ts.columnLookup[strings.ToLower(columnName)]
	if cs == nil {
		return nil
	}
	return cs
}
func (ts *tableSchema) TableName() string {
	return ts.tableName
}
func (ts *tableSchema) OwnerColumn() IColumnSchema {
	if ts.ownerColumn == nil {
		return nil
	}
	return ts.ownerColumn
}
func (ts *tableSchema) Columns() []IColumnSchema {
	var cols []IColumnSchema
	for _, x := range ts.columns {
		cols = append(cols, x)
	}
	return cols
}
func (ts *tableSchema) PrimaryKey() []string {
	return ts.primaryKey[:]
}
func (ts *tableSchema) Indexes() map[string][]string {
	return ts.indexes
}
func (ts *tableSchema) NewEntity() interface{} {
	return reflect.New(ts.structType).Interface()
}

// LoadTableSchema builds a table schema from the "db" tags of a row struct.
// The owner column scopes every query to a single user and is not part of
// the struct itself.
func LoadTableSchema(entityType reflect.Type, primaryKey []string, indexes map[string][]string,
	ownerColumn string, ownerType SqlDataType) (schema ITableSchema, err error) {
	if entityType.Kind() != reflect.Ptr || entityType.Elem().Kind() != reflect.Struct {
		err = api.NewVaultError(fmt.Sprintf("%s: pointer to struct expected", entityType.Name()))
		return
	}
	entityType = entityType.Elem()

	var columns []*columnSchema
	if columns, err = loadStructFields(entityType); err != nil {
		return
	}
	if len(columns) == 0 {
		err = api.NewVaultError(fmt.Sprintf("\"%s\" type: does not have \"db\" tags", entityType.Name()))
		return
	}

	var pk []string
	for _, pkc := range primaryKey {
		var column *columnSchema
		for _, c := range columns {
			if c.columnName == pkc {
				column = c
				break
			}
		}
		if column == nil {
			err = api.NewVaultError(fmt.Sprintf("Primary key column \"%s\" does not exist in \"%s\" type", pkc, entityType.Name()))
			return
		}
		pk = append(pk, column.columnName)
	}
	var idx map[string][]string
	if indexes != nil {
		idx = make(map[string][]string)
		for k, v := range indexes {
			var cols []string
			for _, ic := range v {
				var column *columnSchema
				for _, c := range columns {
					if c.columnName == ic {
						column = c
						break
					}
				}
				if column == nil {
					err = api.NewVaultError(fmt.Sprintf("Index column \"%s\" does not exist in \"%s\" type", ic, entityType.Name()))
					return
				}
				cols = append(cols, column.columnName)
			}
			idx[k] = cols
		}
	}

	var tableName = entityType.Name()
	var rs = []rune(tableName)
	if unicode.IsLower(rs[0]) {
		rs[0] = unicode.ToUpper(rs[0])
		tableName = string(rs)
	}
	var oc *columnSchema
	if ownerColumn != "" {
		oc = &columnSchema{
			columnName:    ownerColumn,
			columnSqlType: ownerType,
		}
	}

	schema = &tableSchema{
		tableName:   tableName,
		structType:  entityType,
		columns:     columns,
		primaryKey:  pk,
		indexes:     idx,
		ownerColumn: oc,
	}
	return
}

func loadStructFields(entityType reflect.Type) (fields []*columnSchema, err error) {
	for i := 0; i < entityType.NumField(); i++ {
		field := entityType.Field(i)
		tag := field.Tag.Get("db")
		if tag == "" {
			continue
		}
		props := strings.Split(tag, ",")
		var sqlDataType SqlDataType
		if sqlDataType, err = getSqlDataType(field.Type); err != nil {
			fields = nil
			return
		}
		fields = append(fields, &columnSchema{
			columnName:    props[0],
			columnSqlType: sqlDataType,
		})
	}
	return
}

func getSqlDataType(t reflect.Type) (sqlDataType SqlDataType, err error) {
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int, reflect.Uint, reflect.Int64, reflect.Uint64:
		sqlDataType = SqlDataType_Integer
	case reflect.Float32, reflect.Float64:
		sqlDataType = SqlDataType_Numeric
	case reflect.String:
		sqlDataType = SqlDataType_String
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			sqlDataType = SqlDataType_Blob
		} else {
			err = api.NewVaultError(fmt.Sprintf("field %s: only []byte slices are supported", t.Name()))
		}
	case reflect.Struct:
		switch t {
		case reflect.TypeOf(sql.NullInt64{}), reflect.TypeOf(sql.NullInt32{}), reflect.TypeOf(sql.NullBool{}):
			sqlDataType = SqlDataType_Integer
		case reflect.TypeOf(sql.NullString{}):
			sqlDataType = SqlDataType_String
		case reflect.TypeOf(sql.NullFloat64{}):
			sqlDataType = SqlDataType_Numeric
		default:
			err = api.NewVaultError(fmt.Sprintf("field %s: unsupported type", t.Name()))
		}
	default:
		err = api.NewVaultError(fmt.Sprintf("field %s: unsupported type", t.Name()))
	}
	return
}

func getAllTables(connection *sqlx.DB) (tables []string, err error) {
	var rows *sqlx.Rows
	if rows, err = connection.Queryx("SELECT name FROM sqlite_master where type='table'"); err != nil {
		return
	}
	defer func() { _ = rows.Close() }()
	var name string
	for rows.Next() {
		if err = rows.Scan(&name); err != nil {
			return
		}
		tables = append(tables, name)
	}
	return
}

func getAllColumns(connection *sqlx.DB, tableName string) (columns []string, err error) {
	var rows *sqlx.Rows
	if rows, err = connection.Queryx(fmt.Sprintf("PRAGMA table_info('%s')", tableName)); err != nil {
		return
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cols []interface{}
		if cols, err = rows.SliceScan(); err != nil {
			return
		}
		if colName, ok := cols[1].(string); ok {
			columns = append(columns, colName)
		}
	}
	return
}

func getAllIndexes(connection *sqlx.DB, tableName string) (indexes []string, err error) {
	var rows *sqlx.Rows
	if rows, err = connection.Queryx(fmt.Sprintf("PRAGMA index_list('%s')", tableName)); err != nil {
		return
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var idx []interface{}
		if idx, err = rows.SliceScan(); err != nil {
			return
		}
		if idxName, ok := idx[1].(string); ok {
			indexes = append(indexes, idxName)
		}
	}
	return
}

// VerifyDatabase compares declared schemas with the live database and either
// applies the DDL to reconcile them or returns it.
func VerifyDatabase(connection *sqlx.DB, tables []ITableSchema, applyChanges bool) (result []string, err error) {
	var list []string
	if list, err = getAllTables(connection); err != nil {
		return
	}
	var existingTables = api.MakeSet(api.SliceSelect(list, strings.ToLower))

	var queries []string
	for _, table := range tables {
		var name = strings.ToLower(table.TableName())
		if existingTables.Has(name) {
			var columns []string
			if columns, err = getAllColumns(connection, table.TableName()); err != nil {
				return
			}
			var allColumns = api.MakeSet(api.SliceSelect(columns, strings.ToLower))
			if table.OwnerColumn() != nil {
				name = strings.ToLower(table.OwnerColumn().ColumnName())
				if !allColumns.Has(name) {
					err = api.NewVaultError(fmt.Sprintf("Table \"%s\" does not have owner column \"%s\"",
						table.TableName(), table.OwnerColumn().ColumnName()))
					return
				}
			}
			for _, x := range table.PrimaryKey() {
				if !allColumns.Has(strings.ToLower(x)) {
					err = api.NewVaultError(fmt.Sprintf("Table \"%s\" does not have primary key column \"%s\"",
						table.TableName(), x))
					return
				}
			}
			for _, x := range table.Columns() {
				if !allColumns.Has(strings.ToLower(x.ColumnName())) {
					queries = append(queries, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
						table.TableName(), x.ColumnName(), x.ColumnSqlType().ToSqlType()))
				}
			}

			var indexes []string
			if indexes, err = getAllIndexes(connection, table.TableName()); err != nil {
				return
			}
			for indexName, indexColumns := range table.Indexes() {
				var found = false
				for _, x := range indexes {
					if strings.EqualFold(x, fmt.Sprintf("%s_%s_IDX", table.TableName(), indexName)) {
						found = true
						break
					}
				}
				if !found {
					queries = append(queries, fmt.Sprintf("CREATE INDEX %s_%s_IDX ON %s (%s)",
						table.TableName(), indexName, table.TableName(), strings.Join(indexColumns, ", ")))
				}
			}
		} else {
			var tableColumnDDL []string
			var pks []string
			if table.OwnerColumn() != nil {
				name = table.OwnerColumn().ColumnName()
				tableColumnDDL = append(tableColumnDDL,
					fmt.Sprintf("%s %s NOT NULL", name, table.OwnerColumn().ColumnSqlType().ToSqlType()))
				pks = append(pks, name)
			}
			var remaining = make(map[string]SqlDataType)
			for _, c := range table.Columns() {
				remaining[strings.ToLower(c.ColumnName())] = c.ColumnSqlType()
			}
			for _, name = range table.PrimaryKey() {
				var lName = strings.ToLower(name)
				if columnType, ok := remaining[lName]; ok {
					tableColumnDDL = append(tableColumnDDL, fmt.Sprintf("%s %s NOT NULL", name, columnType.ToSqlType()))
					delete(remaining, lName)
				}
				pks = append(pks, name)
			}
			for _, c := range table.Columns() {
				var lName = strings.ToLower(c.ColumnName())
				if columnType, ok := remaining[lName]; ok {
					tableColumnDDL = append(tableColumnDDL, fmt.Sprintf("%s %s",
						c.ColumnName(), columnType.ToSqlType()))
					delete(remaining, lName)
				}
			}
			queries = append(queries, fmt.Sprintf("CREATE TABLE %s (\n%s,\nPRIMARY KEY (%s)\n)",
				table.TableName(), strings.Join(tableColumnDDL, ",\n"), strings.Join(pks, ", ")))
			for indexName, indexColumns := range table.Indexes() {
				queries = append(queries, fmt.Sprintf("CREATE INDEX %s_%s_IDX ON %s (%s)",
					table.TableName(), indexName, table.TableName(), strings.Join(indexColumns, ", ")))
			}
		}
	}
	if applyChanges {
		var txn *sqlx.Tx
		if txn, err = connection.Beginx(); err != nil {
			return
		}
		var logger = api.GetLogger()
		for _, query := range queries {
			if _, err = txn.Exec(query); err != nil {
				logger.Warn("Apply database changes error", zap.Error(err))
			} else {
				logger.Debug("Run DDL query", zap.String("query", query))
			}
		}
		err = txn.Commit()
	} else {
		result = queries
	}
	return
}

type ISqliteStorage[T any] interface {
	SelectAll(func(T) bool) error
	SelectFilter([]string, [][]interface{}, func(T) bool) error
	Put([]T) error
	DeleteAll() error
	DeleteFilter([]string, [][]interface{}) error
}

type sqliteStorage[T any] struct {
	getConnection func() *sqlx.DB
	schema        ITableSchema
	ownerValue    interface{}
	queryCache    map[string]string
}

func (ss *sqliteStorage[T]) filterColumns(columns []string) (tag string, err error) {
	var cols = api.NewSet[string]()
	for _, x := range columns {
		var cs = ss.schema.GetColumnByName(x)
		if cs == nil {
			err = api.NewVaultError(
				fmt.Sprintf("Table %s: Column %s not found", ss.schema.TableName(), x))
			return
		}
		if cols.Has(cs.ColumnName()) {
			err = api.NewVaultError(fmt.Sprintf("Filter multiple criterias for column %s", cs.ColumnName()))
			return
		}
		cols.Add(cs.ColumnName())
	}
	sort.Strings(columns)
	tag = strings.Join(columns, ",")
	return
}

func (ss *sqliteStorage[T]) SelectAll(cb func(T) bool) (err error) {
	var key = "select-all"
	var ok bool
	var query string
	if query, ok = ss.queryCache[key]; !ok {
		var columns []string
		for _, x := range ss.schema.Columns() {
			columns = append(columns, x.ColumnName())
		}
		query = fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), ss.schema.TableName())
		if ss.schema.OwnerColumn() != nil {
			query += fmt.Sprintf(" WHERE %s = ?", ss.schema.OwnerColumn().ColumnName())
		}
		ss.queryCache[key] = query
	}

	var args []interface{}
	if ss.schema.OwnerColumn() != nil {
		args = append(args, ss.ownerValue)
	}
	var rows *sqlx.Rows
	if rows, err = ss.getConnection().Queryx(query, args...); err != nil {
		return
	}
	defer func() { _ = rows.Close() }()
	var e T
	for rows.Next() {
		var intf = ss.schema.NewEntity()
		if err = rows.StructScan(intf); err != nil {
			return
		}
		if e, ok = intf.(T); ok {
			if !cb(e) {
				break
			}
		}
	}
	return
}

func (ss *sqliteStorage[T]) SelectFilter(filterColumns []string, filterValues [][]interface{}, cb func(T) bool) (err error) {
	var key string
	if key, err = ss.filterColumns(filterColumns); err != nil {
		return
	}
	key = fmt.Sprintf("select-filter: %s", key)
	var ok bool
	var query string
	if query, ok = ss.queryCache[key]; !ok {
		var columns []string
		for _, x := range ss.schema.Columns() {
			columns = append(columns, x.ColumnName())
		}
		query = fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), ss.schema.TableName())
		columns = nil
		if ss.schema.OwnerColumn() != nil {
			columns = append(columns, fmt.Sprintf("%s = ?", ss.schema.OwnerColumn().ColumnName()))
		}
		for _, x := range filterColumns {
			columns = append(columns, fmt.Sprintf("%s = ?", x))
		}
		if len(columns) > 0 {
			query += fmt.Sprintf(" WHERE %s", strings.Join(columns, " AND "))
		}
		ss.queryCache[key] = query
	}

	var stmt *sqlx.Stmt
	if stmt, err = ss.getConnection().Preparex(query); err != nil {
		return
	}
	defer func() { _ = stmt.Close() }()
	for _, fv := range filterValues {
		var args []interface{}
		if ss.schema.OwnerColumn() != nil {
			args = append(args, ss.ownerValue)
		}
		args = append(args, fv...)
		var rows *sqlx.Rows
		if rows, err = stmt.Queryx(args...); err != nil {
			break
		}
		var e T
		for rows.Next() {
			var intf = ss.schema.NewEntity()
			if err = rows.StructScan(intf); err != nil {
				break
			}
			if e, ok = intf.(T); ok {
				if !cb(e) {
					break
				}
			}
		}
		_ = rows.Close()
		if err != nil {
			break
		}
	}
	return
}

// Put upserts all rows in a single transaction: either the whole batch
// applies or none of it does.
func (ss *sqliteStorage[T]) Put(rows []T) (err error) {
	var key = "put"
	var ok bool
	var query string
	if query, ok = ss.queryCache[key]; !ok {
		var columns []string
		var values []string
		if ss.schema.OwnerColumn() != nil {
			var ownerColumn = ss.schema.OwnerColumn().ColumnName()
			columns = append(columns, ownerColumn)
			values = append(values, ":"+ownerColumn)
		}
		for _, x := range ss.schema.Columns() {
			columns = append(columns, x.ColumnName())
			values = append(values, ":"+x.ColumnName())
		}
		query = fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			ss.schema.TableName(), strings.Join(columns, ", "), strings.Join(values, ", "))
		ss.queryCache[key] = query
	}
	var txn *sqlx.Tx
	if txn, err = ss.getConnection().Beginx(); err != nil {
		return
	}
	defer func() {
		if err == nil {
			err = txn.Commit()
		} else {
			_ = txn.Rollback()
		}
	}()

	var stmt *sqlx.NamedStmt
	if stmt, err = txn.PrepareNamed(query); err != nil {
		return
	}
	defer func() { _ = stmt.Close() }()
	for _, row := range rows {
		var m = make(map[string]interface{})
		if ss.schema.OwnerColumn() != nil {
			m[ss.schema.OwnerColumn().ColumnName()] = ss.ownerValue
		}
		var v reflect.Value
		for v = reflect.ValueOf(row); v.Kind() == reflect.Ptr; {
			v = v.Elem()
		}
		_ = stmt.Stmt.Mapper.TraversalsByNameFunc(v.Type(), stmt.Params, func(i int, ints []int) error {
			if len(ints) > 0 {
				val := reflectx.FieldByIndexesReadOnly(v, ints)
				m[stmt.Params[i]] = val.Interface()
			}
			return nil
		})
		if _, err = stmt.Exec(m); err != nil {
			return
		}
	}
	return
}

func (ss *sqliteStorage[T]) DeleteAll() (err error) {
	var key = "delete: all"
	var ok bool
	var query string
	if query, ok = ss.queryCache[key]; !ok {
		query = fmt.Sprintf("DELETE FROM %s", ss.schema.TableName())
		if ss.schema.OwnerColumn() != nil {
			query += fmt.Sprintf(" WHERE %s = ?", ss.schema.OwnerColumn().ColumnName())
		}
		ss.queryCache[key] = query
	}
	var args []interface{}
	if ss.schema.OwnerColumn() != nil {
		args = append(args, ss.ownerValue)
	}
	_, err = ss.getConnection().Exec(query, args...)
	return
}

func (ss *sqliteStorage[T]) DeleteFilter(filterColumns []string, filterValues [][]interface{}) (err error) {
	var key string
	if key, err = ss.filterColumns(filterColumns); err != nil {
		return
	}
	key = fmt.Sprintf("delete: %s", key)
	var ok bool
	var query string
	if query, ok = ss.queryCache[key]; !ok {
		query = fmt.Sprintf("DELETE FROM %s", ss.schema.TableName())
		var columns []string
		if ss.schema.OwnerColumn() != nil {
			columns = append(columns, fmt.Sprintf("%s = ?", ss.schema.OwnerColumn().ColumnName()))
		}
		for _, x := range filterColumns {
			columns = append(columns, fmt.Sprintf("%s = ?", x))
		}
		query += fmt.Sprintf(" WHERE %s", strings.Join(columns, " AND "))
		ss.queryCache[key] = query
	}
	var txn *sqlx.Tx
	if txn, err = ss.getConnection().Beginx(); err != nil {
		return
	}
	defer func() {
		if err == nil {
			err = txn.Commit()
		} else {
			_ = txn.Rollback()
		}
	}()

	var stmt *sql.Stmt
	if stmt, err = txn.Prepare(query); err != nil {
		return
	}
	defer func() { _ = stmt.Close() }()

	for _, fv := range filterValues {
		var args []interface{}
		if ss.schema.OwnerColumn() != nil {
			args = append(args, ss.ownerValue)
		}
		args = append(args, fv...)
		if _, err = stmt.Exec(args...); err != nil {
			break
		}
	}
	return
}
