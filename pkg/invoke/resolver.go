package invoke

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"runtime/debug"
	"slices"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// MethodExporter lets a target hand out methods that reflection cannot reach,
// such as unexported ones, keyed by the name used in configuration.
//
//	func (j *cleanup) InvocableMethods() map[string]any {
//	    return map[string]any{"purge": j.purge}
//	}
type MethodExporter interface {
	InvocableMethods() map[string]any
}

// MethodResolver binds a target, a method name and static arguments into a
// handle. Prepare must succeed before InvokeWithArguments is called, and must
// not race with invocations. Invocations themselves may run concurrently.
type MethodResolver struct {
	target     any
	methodName string
	arguments  []any

	fn  reflect.Value
	sig *signature
}

// signature is the bound shape of a resolved method.
type signature struct {
	hasContext   bool
	static       []reflect.Value
	dynamic      []reflect.Type // non-variadic parameters left after static arguments
	variadic     reflect.Type   // element type of the variadic tail, nil if none
	returnsValue bool
	returnsError bool
}

// NewMethodResolver creates an unprepared resolver.
func NewMethodResolver(target any, methodName string, arguments ...any) *MethodResolver {
	r := &MethodResolver{}
	r.Configure(target, methodName, arguments...)
	return r
}

// Configure replaces the resolver inputs and clears any prepared handle.
func (r *MethodResolver) Configure(target any, methodName string, arguments ...any) {
	r.target = target
	r.methodName = methodName
	r.arguments = slices.Clone(arguments)
	r.fn = reflect.Value{}
	r.sig = nil
}

func (r *MethodResolver) Target() any        { return r.target }
func (r *MethodResolver) MethodName() string { return r.methodName }
func (r *MethodResolver) Arguments() []any   { return slices.Clone(r.arguments) }

// IsPrepared reports whether Prepare has succeeded since the last Configure.
func (r *MethodResolver) IsPrepared() bool {
	return r.sig != nil
}

// Prepare resolves the method and checks the static arguments against its
// signature. Failures are *core.ConfigurationError.
func (r *MethodResolver) Prepare() error {
	r.fn = reflect.Value{}
	r.sig = nil

	if r.methodName == "" {
		return &core.ConfigurationError{Op: "prepare", Err: core.ErrMethodNameEmpty}
	}
	if isNil(r.target) {
		return &core.ConfigurationError{Op: "prepare", Err: core.ErrTargetNotSet}
	}

	fn, err := lookupMethod(r.target, r.methodName)
	if err != nil {
		return &core.ConfigurationError{Op: "prepare", Err: err}
	}

	sig, err := bindSignature(fn.Type(), r.arguments)
	if err != nil {
		return &core.ConfigurationError{
			Op:  "prepare",
			Err: fmt.Errorf("%s on %T: %w", r.methodName, r.target, err),
		}
	}

	r.fn = fn
	r.sig = sig
	return nil
}

// InvokeWithArguments calls the resolved method with the static arguments
// followed by dynamic. Missing trailing parameters get zero values. A returned
// error or a panic comes back as *core.InvocationFailure; the value the method
// returned, if any, is returned alongside it.
func (r *MethodResolver) InvokeWithArguments(ctx context.Context, dynamic ...any) (any, error) {
	if r.sig == nil {
		return nil, &core.ConfigurationError{Op: "invoke", Err: core.ErrNotPrepared}
	}
	sig := r.sig

	args := make([]reflect.Value, 0, 1+len(sig.static)+len(sig.dynamic)+len(dynamic))
	if sig.hasContext {
		if ctx == nil {
			ctx = context.Background()
		}
		args = append(args, reflect.ValueOf(ctx))
	}
	args = append(args, sig.static...)

	for i, d := range dynamic {
		var want reflect.Type
		switch {
		case i < len(sig.dynamic):
			want = sig.dynamic[i]
		case sig.variadic != nil:
			want = sig.variadic
		default:
			return nil, r.failure(fmt.Errorf("%w: %d call-time arguments, method accepts %d",
				core.ErrArgumentMismatch, len(dynamic), len(sig.dynamic)))
		}
		v, err := argumentValue(d, want)
		if err != nil {
			return nil, r.failure(fmt.Errorf("%w: argument %d: %v", core.ErrArgumentMismatch, i, err))
		}
		args = append(args, v)
	}
	for i := len(dynamic); i < len(sig.dynamic); i++ {
		args = append(args, reflect.Zero(sig.dynamic[i]))
	}

	out, err := r.call(args)
	if err != nil {
		return nil, r.failure(err)
	}

	var result any
	var callErr error
	switch {
	case sig.returnsValue && sig.returnsError:
		result = out[0].Interface()
		callErr = asError(out[1])
	case sig.returnsValue:
		result = out[0].Interface()
	case sig.returnsError:
		callErr = asError(out[0])
	}

	if callErr != nil {
		return result, r.failure(callErr)
	}
	return result, nil
}

func (r *MethodResolver) call(args []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &core.PanicError{Value: p, Stack: string(debug.Stack())}
		}
	}()
	return r.fn.Call(args), nil
}

func (r *MethodResolver) failure(cause error) error {
	return &core.InvocationFailure{Method: r.methodName, Cause: cause}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// lookupMethod finds name on target: its method set first, then methods it
// exports through MethodExporter, then an exported func-typed struct field.
func lookupMethod(target any, name string) (reflect.Value, error) {
	v := reflect.ValueOf(target)

	if m := v.MethodByName(name); m.IsValid() {
		return m, nil
	}

	if exp, ok := target.(MethodExporter); ok {
		if fn, ok := exp.InvocableMethods()[name]; ok {
			fv := reflect.ValueOf(fn)
			if fv.Kind() != reflect.Func || fv.IsNil() {
				return reflect.Value{}, fmt.Errorf("%w: exported %q on %T is not a function", core.ErrMethodNotFound, name, target)
			}
			return fv, nil
		}
	}

	s := v
	for s.Kind() == reflect.Pointer && !s.IsNil() {
		s = s.Elem()
	}
	if s.Kind() == reflect.Struct {
		if sf, ok := s.Type().FieldByName(name); ok && sf.IsExported() && sf.Type.Kind() == reflect.Func {
			f, err := s.FieldByIndexErr(sf.Index)
			if err == nil && !f.IsNil() {
				return f, nil
			}
		}
	}

	if v.Kind() != reflect.Pointer {
		if _, ok := reflect.PointerTo(v.Type()).MethodByName(name); ok {
			return reflect.Value{}, fmt.Errorf("%w: %q has a pointer receiver, pass *%T as target", core.ErrMethodNotFound, name, target)
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: %q on %T", core.ErrMethodNotFound, name, target)
}

// bindSignature checks static against fnType. An optional leading
// context.Context is supplied at call time; static arguments fill the
// following parameters in order.
func bindSignature(fnType reflect.Type, static []any) (*signature, error) {
	sig := &signature{}

	first := 0
	if fnType.NumIn() > 0 && fnType.In(0) == contextType {
		sig.hasContext = true
		first = 1
	}

	fixed := fnType.NumIn()
	if fnType.IsVariadic() {
		fixed--
		sig.variadic = fnType.In(fixed).Elem()
	}

	pos := first
	for i, a := range static {
		var want reflect.Type
		switch {
		case pos < fixed:
			want = fnType.In(pos)
		case sig.variadic != nil:
			want = sig.variadic
		default:
			return nil, fmt.Errorf("%w: %d static arguments, method accepts %d",
				core.ErrSignatureMismatch, len(static), fixed-first)
		}
		v, err := argumentValue(a, want)
		if err != nil {
			return nil, fmt.Errorf("%w: static argument %d: %v", core.ErrSignatureMismatch, i, err)
		}
		sig.static = append(sig.static, v)
		pos++
	}
	for ; pos < fixed; pos++ {
		sig.dynamic = append(sig.dynamic, fnType.In(pos))
	}

	switch fnType.NumOut() {
	case 0:
	case 1:
		if fnType.Out(0) == errorType {
			sig.returnsError = true
		} else {
			sig.returnsValue = true
		}
	case 2:
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("%w: method must return (T, error)", core.ErrSignatureMismatch)
		}
		sig.returnsValue = true
		sig.returnsError = true
	default:
		return nil, fmt.Errorf("%w: method must return nothing, error, T or (T, error)", core.ErrSignatureMismatch)
	}

	return sig, nil
}

// argumentValue converts a to want. Numeric values convert across numeric
// kinds so configuration decoded as int can feed an int64 parameter.
func argumentValue(a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		if nillable(want.Kind()) {
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", want)
	}

	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if numeric(v.Kind()) && numeric(want.Kind()) && v.Type().ConvertibleTo(want) {
		if err := fitsNumeric(v, want); err != nil {
			return reflect.Value{}, err
		}
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), want)
}

// fitsNumeric rejects conversions that would change the value: overflow,
// negative to unsigned, or a fractional float to an integer.
func fitsNumeric(v reflect.Value, want reflect.Type) error {
	slot := reflect.New(want).Elem()
	switch {
	case isInt(want.Kind()):
		switch {
		case isInt(v.Kind()):
			if slot.OverflowInt(v.Int()) {
				return fmt.Errorf("%d overflows %s", v.Int(), want)
			}
		case isUint(v.Kind()):
			if v.Uint() > math.MaxInt64 || slot.OverflowInt(int64(v.Uint())) {
				return fmt.Errorf("%d overflows %s", v.Uint(), want)
			}
		default:
			f := v.Float()
			if err := wholeFloat(f, want); err != nil {
				return err
			}
			if f < math.MinInt64 || f >= math.MaxInt64 || slot.OverflowInt(int64(f)) {
				return fmt.Errorf("%v overflows %s", f, want)
			}
		}
	case isUint(want.Kind()):
		switch {
		case isInt(v.Kind()):
			if v.Int() < 0 {
				return fmt.Errorf("negative %d cannot be %s", v.Int(), want)
			}
			if slot.OverflowUint(uint64(v.Int())) {
				return fmt.Errorf("%d overflows %s", v.Int(), want)
			}
		case isUint(v.Kind()):
			if slot.OverflowUint(v.Uint()) {
				return fmt.Errorf("%d overflows %s", v.Uint(), want)
			}
		default:
			f := v.Float()
			if err := wholeFloat(f, want); err != nil {
				return err
			}
			if f < 0 {
				return fmt.Errorf("negative %v cannot be %s", f, want)
			}
			if f >= math.MaxUint64 || slot.OverflowUint(uint64(f)) {
				return fmt.Errorf("%v overflows %s", f, want)
			}
		}
	default:
		if v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64 {
			if slot.OverflowFloat(v.Float()) {
				return fmt.Errorf("%v overflows %s", v.Float(), want)
			}
		}
	}
	return nil
}

func wholeFloat(f float64, want reflect.Type) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return fmt.Errorf("%v is not a whole number for %s", f, want)
	}
	return nil
}

func isNil(target any) bool {
	if target == nil {
		return true
	}
	v := reflect.ValueOf(target)
	return nillable(v.Kind()) && v.IsNil()
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return true
	}
	return false
}

func numeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
