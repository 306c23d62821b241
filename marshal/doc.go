// Package marshal converts between host Go values and raw engine values,
// keyed by the bridge's compact signature encoding.
//
// A function type is written "(params)results" with one character per
// value: i=i32, I=i64, f=f32, F=f64, R=externref, V=v128, c=funcref.
// For example "(iI)F" takes an i32 and an i64 and returns an f64.
//
// Reference and vector kinds appear in signatures and descriptors but are
// not convertible to or from host values; supplying one yields an
// unsupported-kind error.
package marshal
