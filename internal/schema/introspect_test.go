package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebelice/lazyadmin/internal/filter"
	"github.com/rebelice/lazyadmin/internal/models"
)

func blogTables() []TableMeta {
	return []TableMeta{
		{
			Schema: "public",
			Name:   "users",
			Columns: []models.ColumnInfo{
				{Name: "id", DataType: "integer", UdtName: "int4", PrimaryKey: true},
				{Name: "email", DataType: "text", UdtName: "text"},
				{Name: "role", DataType: "USER-DEFINED", UdtName: "role", IsEnum: true},
				{Name: "tags", DataType: "ARRAY", UdtName: "_text", IsArray: true},
				{Name: "meta", DataType: "jsonb", UdtName: "jsonb", IsJsonb: true},
				{Name: "created_at", DataType: "timestamp with time zone", UdtName: "timestamptz"},
			},
			Constraints: []models.Constraint{
				{Name: "users_pkey", Type: "p", Columns: []string{"id"}},
			},
		},
		{
			Schema: "public",
			Name:   "posts",
			Columns: []models.ColumnInfo{
				{Name: "id", DataType: "bigint", UdtName: "int8", PrimaryKey: true},
				{Name: "author_id", DataType: "integer", UdtName: "int4"},
				{Name: "published", DataType: "boolean", UdtName: "bool"},
			},
			Constraints: []models.Constraint{
				{Name: "posts_pkey", Type: "p", Columns: []string{"id"}},
				{
					Name:         "posts_author_id_fkey",
					Type:         "f",
					Columns:      []string{"author_id"},
					ForeignTable: "public.users",
					ForeignCols:  []string{"id"},
				},
				{
					Name:         "posts_audit_fkey",
					Type:         "f",
					Columns:      []string{"audit_id"},
					ForeignTable: "audit.events",
					ForeignCols:  []string{"id"},
				},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	enums := []models.EnumType{{Name: "role", Values: []string{"admin", "member"}}}

	s, err := Build(blogTables(), enums)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, s.Names())

	users, ok := s.Model("users")
	require.True(t, ok)
	assert.Equal(t, "id", users.PrimaryKey)
	assert.Equal(t, "public", users.DBSchema)

	wantTypes := map[string]models.FieldType{
		"id":         models.TypeNumber,
		"email":      models.TypeString,
		"role":       models.TypeEnum,
		"tags":       models.TypeString,
		"meta":       models.TypeJSON,
		"created_at": models.TypeDateTime,
		"posts":      models.TypeRelation,
	}
	for name, want := range wantTypes {
		f, ok := users.Field(name)
		require.True(t, ok, name)
		assert.Equal(t, want, f.Type, name)
	}

	role, _ := users.Field("role")
	assert.Equal(t, []string{"admin", "member"}, role.EnumValues)

	tags, _ := users.Field("tags")
	assert.True(t, tags.List)

	back, _ := users.Field("posts")
	assert.Equal(t, models.KindObjectList, back.Kind)
	assert.Equal(t, "posts", back.RelationTo)
	assert.Equal(t, []string{"author_id"}, back.RelationFields)
	assert.Equal(t, []string{"id"}, back.RelationReferences)

	posts, _ := s.Model("posts")
	author, ok := posts.Field("author")
	require.True(t, ok)
	assert.Equal(t, models.KindObject, author.Kind)
	assert.Equal(t, "users", author.RelationTo)

	// Foreign keys to tables outside the introspected set are skipped
	assert.Len(t, posts.Fields, 4)
}

func TestToOneName(t *testing.T) {
	assert.Equal(t, "author", toOneName([]string{"author_id"}, "users"))
	assert.Equal(t, "owner", toOneName([]string{"ownerId"}, "users"))
	assert.Equal(t, "users", toOneName([]string{"id"}, "users"))
	assert.Equal(t, "users", toOneName([]string{"a", "b"}, "users"))
}

func TestUniqueField(t *testing.T) {
	m := &Model{Fields: []models.FilterConfig{{Field: "author"}, {Field: "author_2"}}}
	assert.Equal(t, "author_3", uniqueField(m, "author"))
	assert.Equal(t, "editor", uniqueField(m, "editor"))
}

func TestBuildExtensionTypes(t *testing.T) {
	tables := []TableMeta{{
		Schema: "public",
		Name:   "shops",
		Columns: []models.ColumnInfo{
			{Name: "id", DataType: "integer", UdtName: "int4", PrimaryKey: true},
			{Name: "email", DataType: "USER-DEFINED", UdtName: "citext"},
			{Name: "loc", DataType: "point", UdtName: "point"},
			{Name: "opens", DataType: "time without time zone", UdtName: "time"},
			{Name: "seats", DataType: "int4range", UdtName: "int4range"},
		},
	}}

	s, err := Build(tables, nil)
	require.NoError(t, err)
	shops, ok := s.Model("shops")
	require.True(t, ok)

	for _, name := range []string{"email", "loc", "opens", "seats"} {
		f, ok := shops.Field(name)
		require.True(t, ok, name)
		assert.Equal(t, models.TypeString, f.Type, name)
		assert.Equal(t, models.KindScalar, f.Kind, name)
	}

	where := filter.BuildSearchWhere("ali", shops.Fields)
	or, ok := where[models.WhereOr].([]models.WhereInput)
	require.True(t, ok)
	var searched []string
	for _, cond := range or {
		for field := range cond {
			searched = append(searched, field)
		}
	}
	assert.Contains(t, searched, "email")
}
