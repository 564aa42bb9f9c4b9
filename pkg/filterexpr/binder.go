// Package filterexpr binds AIP-160 style filter and order_by strings
// onto typed query structs. Filters are parsed with cel-go, restricted
// to AND-joined comparisons against whitelisted fields.
package filterexpr

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Msg is any request carrying raw filter and order_by inputs.
type Msg interface {
	GetFilter() string
	GetOrderBy() string
}

// ValueKind is the literal kind a filter field accepts.
type ValueKind string

const (
	KindString    ValueKind = "string"
	KindNumber    ValueKind = "number"
	KindTimestamp ValueKind = "timestamp"
)

// Op is a supported comparison operation.
type Op string

const (
	OpEQ  Op = "=="
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpSW  Op = "startsWith"
	OpIN  Op = "in"
)

// FilterField whitelists one filterable field: its literal kind and, per
// allowed operation, the query-struct field the literal lands in.
type FilterField struct {
	Kind ValueKind
	Ops  map[Op]string
}

// OrderSchema whitelists order keys and names the defaults. Keys maps an
// order key to the SQL expression the repository sorts by.
type OrderSchema struct {
	Default     string
	DefaultDesc bool
	TieBreak    string
	Keys        map[string]string
}

// Column resolves an order key to its SQL expression.
func (s OrderSchema) Column(key string) (string, bool) {
	col, ok := s.Keys[key]
	return col, ok
}

// Schema aggregates the filter and order rules for one resource.
type Schema struct {
	Filter map[string]FilterField
	Order  OrderSchema
}

var timeType = reflect.TypeOf(time.Time{})

// Bind parses msg's filter and order_by and populates the query struct.
// A binding error means client input was rejected; the struct is left
// partially written and must be discarded.
func Bind[M Msg, P any](msg M, binding *P, schema Schema) error {
	if binding == nil {
		return errors.New("binding must not be nil")
	}
	if err := bindFilter(binding, msg.GetFilter(), schema.Filter); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	ord, err := parseOrderBy(msg.GetOrderBy(), schema.Order)
	if err != nil {
		return fmt.Errorf("order_by: %w", err)
	}
	return setOrderParams(binding, ord)
}

func bindFilter(binding any, filter string, fields map[string]FilterField) error {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil
	}
	if len(fields) == 0 {
		return errors.New("no filterable fields defined")
	}

	env, err := buildEnv(fields)
	if err != nil {
		return err
	}
	ast, issues := env.Parse(filter)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("invalid filter: %w", issues.Err())
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return fmt.Errorf("failed to convert AST: %w", err)
	}
	conjuncts, err := extractConjuncts(parsed.GetExpr())
	if err != nil {
		return err
	}

	dest := reflect.ValueOf(binding).Elem()
	if dest.Kind() != reflect.Struct {
		return errors.New("binding must point to a struct")
	}

	for _, expr := range conjuncts {
		pred, err := parsePredicate(expr)
		if err != nil {
			return err
		}
		rule, ok := fields[pred.Field]
		if !ok {
			return fmt.Errorf("field %q is not allowed", pred.Field)
		}
		targetName, ok := rule.Ops[pred.Op]
		if !ok {
			return fmt.Errorf("operator %q is not allowed for field %q", string(pred.Op), pred.Field)
		}
		if err := checkLiteral(rule.Kind, pred.Op, pred.Value); err != nil {
			return fmt.Errorf("field %q: %w", pred.Field, err)
		}
		field := dest.FieldByName(targetName)
		if !field.IsValid() || !field.CanSet() {
			return fmt.Errorf("query struct %s has no settable field %q", dest.Type(), targetName)
		}
		if err := assign(field, pred.Value); err != nil {
			return fmt.Errorf("failed to assign field %q: %w", targetName, err)
		}
	}
	return nil
}

func buildEnv(fields map[string]FilterField) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(fields)+1)
	for name, rule := range fields {
		var celType *cel.Type
		switch rule.Kind {
		case KindString:
			celType = cel.StringType
		case KindNumber:
			celType = cel.DoubleType
		case KindTimestamp:
			celType = cel.TimestampType
		default:
			return nil, fmt.Errorf("field %q: unsupported kind %s", name, rule.Kind)
		}
		opts = append(opts, cel.Variable(name, celType))
	}
	opts = append(opts, cel.CrossTypeNumericComparisons(true))
	return cel.NewEnv(opts...)
}

type predicate struct {
	Field string
	Op    Op
	Value any
}

// extractConjuncts flattens nested AND chains into a flat predicate
// list. Any other logical operator is rejected.
func extractConjuncts(expr *exprpb.Expr) ([]*exprpb.Expr, error) {
	if expr == nil {
		return nil, errors.New("empty expression")
	}
	call := expr.GetCallExpr()
	if call == nil {
		return []*exprpb.Expr{expr}, nil
	}
	switch call.Function {
	case "_&&_":
		var out []*exprpb.Expr
		for _, arg := range call.Args {
			sub, err := extractConjuncts(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case "_||_", "_?_:_", "!":
		return nil, fmt.Errorf("logical operator %q is not supported; only AND is allowed", call.Function)
	default:
		return []*exprpb.Expr{expr}, nil
	}
}

func parsePredicate(expr *exprpb.Expr) (predicate, error) {
	call := expr.GetCallExpr()
	if call == nil {
		return predicate{}, errors.New("unsupported expression; expected comparison or function call")
	}
	switch call.Function {
	case "_==_":
		return parseBinary(call, OpEQ)
	case "_>=_":
		return parseBinary(call, OpGTE)
	case "_<=_":
		return parseBinary(call, OpLTE)
	case "_in_", "@in":
		return parseIn(call)
	case "startsWith":
		return parseStartsWith(call)
	default:
		return predicate{}, fmt.Errorf("function %q is not supported", call.Function)
	}
}

func parseBinary(call *exprpb.Expr_Call, op Op) (predicate, error) {
	if call.Target != nil || len(call.Args) != 2 {
		return predicate{}, fmt.Errorf("operator %q expects two operands", string(op))
	}
	name, err := fieldIdent(call.Args[0])
	if err != nil {
		return predicate{}, err
	}
	value, err := literal(call.Args[1])
	if err != nil {
		return predicate{}, err
	}
	return predicate{Field: name, Op: op, Value: value}, nil
}

func parseIn(call *exprpb.Expr_Call) (predicate, error) {
	var fieldExpr, listExpr *exprpb.Expr
	if call.Target != nil {
		if len(call.Args) != 1 {
			return predicate{}, errors.New("in operator with receiver must have exactly one argument")
		}
		listExpr, fieldExpr = call.Target, call.Args[0]
	} else {
		if len(call.Args) != 2 {
			return predicate{}, errors.New("in operator expects two operands")
		}
		fieldExpr, listExpr = call.Args[0], call.Args[1]
	}
	name, err := fieldIdent(fieldExpr)
	if err != nil {
		return predicate{}, err
	}
	value, err := literal(listExpr)
	if err != nil {
		return predicate{}, err
	}
	return predicate{Field: name, Op: OpIN, Value: value}, nil
}

func parseStartsWith(call *exprpb.Expr_Call) (predicate, error) {
	var fieldExpr, valueExpr *exprpb.Expr
	if call.Target != nil {
		if len(call.Args) != 1 {
			return predicate{}, errors.New("startsWith with receiver must have exactly one argument")
		}
		fieldExpr, valueExpr = call.Target, call.Args[0]
	} else {
		if len(call.Args) != 2 {
			return predicate{}, errors.New("startsWith must have exactly two arguments")
		}
		fieldExpr, valueExpr = call.Args[0], call.Args[1]
	}
	name, err := fieldIdent(fieldExpr)
	if err != nil {
		return predicate{}, err
	}
	value, err := literal(valueExpr)
	if err != nil {
		return predicate{}, err
	}
	str, ok := value.(string)
	if !ok {
		return predicate{}, errors.New("startsWith requires a string literal argument")
	}
	return predicate{Field: name, Op: OpSW, Value: str}, nil
}

func fieldIdent(expr *exprpb.Expr) (string, error) {
	ident := expr.GetIdentExpr()
	if ident == nil {
		return "", errors.New("left-hand side must be an identifier")
	}
	return ident.GetName(), nil
}

func literal(expr *exprpb.Expr) (any, error) {
	if constant := expr.GetConstExpr(); constant != nil {
		switch constant.ConstantKind.(type) {
		case *exprpb.Constant_StringValue:
			return constant.GetStringValue(), nil
		case *exprpb.Constant_Int64Value:
			return float64(constant.GetInt64Value()), nil
		case *exprpb.Constant_Uint64Value:
			return float64(constant.GetUint64Value()), nil
		case *exprpb.Constant_DoubleValue:
			return constant.GetDoubleValue(), nil
		default:
			return nil, fmt.Errorf("literal type %T is not supported", constant.ConstantKind)
		}
	}
	if list := expr.GetListExpr(); list != nil {
		elements := list.GetElements()
		values := make([]string, len(elements))
		for i, elem := range elements {
			val, err := literal(elem)
			if err != nil {
				return nil, fmt.Errorf("list literal element %d: %w", i, err)
			}
			str, ok := val.(string)
			if !ok {
				return nil, errors.New("list literal elements must be strings")
			}
			values[i] = str
		}
		return values, nil
	}
	if call := expr.GetCallExpr(); call != nil && call.Function == "timestamp" {
		if call.Target != nil || len(call.Args) != 1 {
			return nil, errors.New("timestamp() expects a single string argument")
		}
		arg := call.Args[0].GetConstExpr()
		if arg == nil {
			return nil, errors.New("timestamp() argument must be a string literal")
		}
		str := arg.GetStringValue()
		if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
			return t, nil
		}
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			return t, nil
		}
		return nil, fmt.Errorf("timestamp literal %q is not RFC3339", str)
	}
	return nil, errors.New("right-hand side must be a literal, list literal, or timestamp() call")
}

func checkLiteral(kind ValueKind, op Op, value any) error {
	switch kind {
	case KindString:
		if op == OpIN {
			list, ok := value.([]string)
			if !ok {
				return errors.New("expected list of string literals")
			}
			if len(list) == 0 {
				return errors.New("list literal must not be empty")
			}
			for _, item := range list {
				if item == "" {
					return errors.New("list literal must not contain empty strings")
				}
			}
			return nil
		}
		if _, ok := value.(string); !ok {
			return errors.New("expected string literal")
		}
	case KindNumber:
		if _, ok := value.(float64); !ok {
			return errors.New("expected number literal")
		}
	case KindTimestamp:
		if _, ok := value.(time.Time); !ok {
			return errors.New("expected timestamp literal")
		}
	default:
		return fmt.Errorf("unsupported field kind %s", kind)
	}
	return nil
}

func assign(field reflect.Value, value any) error {
	switch v := value.(type) {
	case string:
		if field.Kind() != reflect.String {
			return fmt.Errorf("expected string destination, got %s", field.Kind())
		}
		field.SetString(v)
	case []string:
		if field.Kind() != reflect.Slice || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("expected []string destination, got %s", field.Type())
		}
		clone := make([]string, len(v))
		copy(clone, v)
		field.Set(reflect.ValueOf(clone))
	case float64:
		return assignNumeric(field, v)
	case time.Time:
		if field.Type() != timeType {
			return fmt.Errorf("expected time.Time destination, got %s", field.Type())
		}
		field.Set(reflect.ValueOf(v))
	default:
		return fmt.Errorf("unsupported literal type %T", value)
	}
	return nil
}

func assignNumeric(field reflect.Value, value float64) error {
	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		field.SetFloat(value)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if math.Trunc(value) != value {
			return fmt.Errorf("cannot assign non-integer value %v to integer field", value)
		}
		bits := field.Type().Bits()
		min := -1 << (bits - 1)
		max := (1 << (bits - 1)) - 1
		if value < float64(min) || value > float64(max) {
			return fmt.Errorf("value %v overflows integer field", value)
		}
		field.SetInt(int64(value))
		return nil
	default:
		return fmt.Errorf("numeric assignment requires integer or float field, got %s", field.Kind())
	}
}
