// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

/*
Package typeinfo analyses the declared types of record fields. Types are
written in a Rust-flavoured syntax (Vec<Vec<i32>>, &'a str, [f64; 3],
fn(T) -> U, impl Trait, ...) so that record declarations can state generic
parameters and ownership scopes precisely.

For every field the analysis derives:

  - the homogeneous container nesting depth of the type,
  - whether the type mentions the record's generic parameters,
  - the minimal closure of generic parameters, ownership scopes and where
    predicates that code derived from the field has to repeat,
  - a normalized descriptor used to detect record links.

Parsing is the only step that can fail. Once a type has parsed, analysis
always succeeds and is deterministic.
*/
package typeinfo
