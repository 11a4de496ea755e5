package translators

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/typemap"
)

var jsonOperators = map[string]sqlexpr.PgOperator{
	"Json.Contains":  sqlexpr.PgContains,
	"Json.Contained": sqlexpr.PgContainedBy,
	"Json.Exists":    sqlexpr.PgJsonExists,
	"Json.ExistAny":  sqlexpr.PgJsonExistsAny,
	"Json.ExistAll":  sqlexpr.PgJsonExistsAll,
}

// jsonValueGetters read a scalar out of a JSON element as text, then cast.
var jsonValueGetters = map[string]*hosttype.Type{
	"JsonElement.GetString":   hosttype.String,
	"JsonElement.GetInt32":    hosttype.Int32,
	"JsonElement.GetInt64":    hosttype.Int64,
	"JsonElement.GetDouble":   hosttype.Float64,
	"JsonElement.GetDecimal":  hosttype.Decimal,
	"JsonElement.GetBoolean":  hosttype.Bool,
	"JsonElement.GetGuid":     hosttype.UUID,
	"JsonElement.GetDateTime": hosttype.DateTime,
}

func (t *Translator) registerJSON() {
	for name, op := range jsonOperators {
		name, op := name, op
		t.static(name, 2, 2, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
			return t.jsonbOperator(op, args[0], args[1])
		})
	}
	t.static("Json.Typeof", 1, 1, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		arg := t.asJSON(removeConvert(args[0]))
		m, ok := jsonMapping(arg)
		if !ok {
			return nil, qerrors.NewInvalidShapeError("json_typeof requires a JSON operand, got %s", arg.TypeMapping())
		}
		name := "json_typeof"
		if m.Family() == typemap.FamilyJSONB {
			name = "jsonb_typeof"
		}
		return t.function(name, []sqlexpr.Expression{arg}, hosttype.String, nil)
	})

	t.onInstance("Json.ArrayLength", 0, func(instance sqlexpr.Expression, _ []sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.jsonArrayLength(instance)
	})
	t.onInstance("JsonElement.GetArrayLength", 0, func(instance sqlexpr.Expression, _ []sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.jsonArrayLength(instance)
	})
	t.onInstance("JsonElement.GetProperty", 1, func(instance sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		root := t.asJSON(instance)
		m, ok := jsonMapping(root)
		if !ok {
			return nil, qerrors.NewInvalidShapeError("property access on non-JSON operand %s", root.TypeMapping())
		}
		return t.f.JsonTraversal(root, args, false, hosttype.JSONElement, m)
	})
	for name, typ := range jsonValueGetters {
		name, typ := name, typ
		t.onInstance(name, 0, func(instance sqlexpr.Expression, _ []sqlexpr.Expression) (sqlexpr.Expression, error) {
			return t.jsonValue(instance, typ)
		})
	}
}

// JsonProperty translates access of a mapped property of a JSON document.
// Document-typed properties stay JSON so further access extends the path;
// scalar properties are read as text and cast to typ.
func (t *Translator) JsonProperty(instance sqlexpr.Expression, property string, typ *hosttype.Type) (sqlexpr.Expression, error) {
	root := t.asJSON(instance)
	m, ok := jsonMapping(root)
	if !ok {
		return nil, qerrors.NewInvalidShapeError("property %s of non-JSON operand %s", property, instance.TypeMapping())
	}
	path := []sqlexpr.Expression{t.f.ConstantOf(property)}

	switch hosttype.Unwrap(typ) {
	case hosttype.JSONDocument, hosttype.JSONElement, hosttype.Object:
		return t.f.JsonTraversal(root, path, false, typ, m)
	}
	text, err := t.f.JsonTraversal(root, path, true, hosttype.String, nil)
	if err != nil {
		return nil, err
	}
	if hosttype.Unwrap(typ) == hosttype.String {
		return text, nil
	}
	return t.f.Convert(text, typ, nil)
}

func (t *Translator) jsonbOperator(op sqlexpr.PgOperator, left, right sqlexpr.Expression) (sqlexpr.Expression, error) {
	left, right = t.asJSON(removeConvert(left)), t.asJSON(removeConvert(right))
	_, leftJSON := jsonMapping(left)
	_, rightJSON := jsonMapping(right)
	if !leftJSON && !rightJSON {
		return nil, qerrors.NewInvalidShapeError("%s requires a JSON operand", op)
	}
	for _, e := range []sqlexpr.Expression{left, right} {
		if m, ok := jsonMapping(e); ok && m.Family() != typemap.FamilyJSONB {
			return nil, qerrors.NewInvalidShapeError("%s supports jsonb only, not %s", op, m.StoreType())
		}
	}

	jsonb := t.f.Source().FindMappingByStoreType("jsonb")
	l, err := t.f.ApplyTypeMapping(left, jsonb)
	if err != nil {
		return nil, err
	}
	if op != sqlexpr.PgContains && op != sqlexpr.PgContainedBy {
		return t.f.MakePostgresBinary(op, l, right, nil)
	}
	// Both sides are jsonb whatever their host types, so the containment is
	// built directly rather than inferred from range or array shapes.
	r, err := t.f.ApplyTypeMapping(right, jsonb)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewPgBinary(op, l, r, hosttype.Bool, t.f.BoolMapping()), nil
}

func (t *Translator) jsonArrayLength(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
	arg := t.asJSON(instance)
	m, ok := jsonMapping(arg)
	if !ok {
		return nil, qerrors.NewInvalidShapeError("array length of non-JSON operand %s", instance.TypeMapping())
	}
	name := "json_array_length"
	if m.Family() == typemap.FamilyJSONB {
		name = "jsonb_array_length"
	}
	return t.function(name, []sqlexpr.Expression{arg}, hosttype.NullableOf(hosttype.Int32), nil)
}

func (t *Translator) jsonValue(instance sqlexpr.Expression, typ *hosttype.Type) (sqlexpr.Expression, error) {
	j, ok := instance.(*sqlexpr.JsonTraversal)
	if !ok {
		return nil, qerrors.NewInvalidShapeError("JSON value read requires a traversal, got %s", instance.Kind())
	}
	text, err := t.asText(j)
	if err != nil {
		return nil, err
	}
	if typ == hosttype.String {
		return text, nil
	}
	return t.f.Convert(text, typ, nil)
}

// asJSON turns a text-returning traversal back into one returning JSON, as
// functions over it need a document rather than its text.
func (t *Translator) asJSON(e sqlexpr.Expression) sqlexpr.Expression {
	j, ok := e.(*sqlexpr.JsonTraversal)
	if !ok || !j.ReturnsText {
		return e
	}
	return sqlexpr.NewJsonTraversal(j.Root, j.Path, false, hosttype.JSONElement, j.Root.TypeMapping())
}

func (t *Translator) asText(j *sqlexpr.JsonTraversal) (*sqlexpr.JsonTraversal, error) {
	if j.ReturnsText {
		return j, nil
	}
	return t.f.JsonTraversal(j.Root, j.Path, true, hosttype.String, nil)
}

// jsonMapping returns the json or jsonb mapping e evaluates to. A traversal
// that returns JSON carries its root's mapping.
func jsonMapping(e sqlexpr.Expression) (*typemap.Mapping, bool) {
	m := e.TypeMapping()
	if j, ok := e.(*sqlexpr.JsonTraversal); ok && !j.ReturnsText {
		m = j.Root.TypeMapping()
	}
	if m == nil {
		return nil, false
	}
	f := m.Family()
	return m, f == typemap.FamilyJSON || f == typemap.FamilyJSONB
}

func removeConvert(e sqlexpr.Expression) sqlexpr.Expression {
	for {
		u, ok := e.(*sqlexpr.Unary)
		if !ok || u.Op != sqlexpr.OpConvert {
			return e
		}
		e = u.Operand
	}
}
