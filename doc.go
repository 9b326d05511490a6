/*
Package viewstate keeps the settings of paginated, server-backed list views
(the experiment listing and the flat run listing of a project).

It covers:

1. Selection, a row selection over a collection that is never fully loaded:
either “only these rows” or “all rows except these”.

2. Settings and Partial, the full and the persisted form of a view's
configuration, with per-kind defaults (ViewKind) and schema validation of
stored values (Decode, Encode).

3. DB, a key-value settings store on top of Bolt, or in memory for tests.

4. View, which loads settings for one view instance and writes changes back
to a Store: eagerly for most fields, debounced for column widths.

# Technical Details

**Keys.**
Settings of a view live under "<prefix><projectID>", e.g.
experimentListingForProject42.

**Buckets.**
The DB has a single root bucket, “settings”. Each settings key is a nested
bucket holding one record per top-level settings field. This makes partial
writes cheap: saving {"pageLimit": 50} rewrites one record and leaves the
rest alone.

**Values.**
Every record starts with a small header (flags, schema version, mod count,
data size; all uvarints) followed by the field value encoded with MsgPack
or JSON. A write that would produce identical bytes is skipped and does not
bump the mod count.

**Validation.**
Stored data is never trusted. Decode drops fields of the wrong type or out
of range, so the default applies for them, and reports them in a
*DecodeError. Unknown fields are ignored.

**Slices.**
Column widths change continuously while a column is dragged. They are
stored under the same key, but the View writes them through a Debouncer
once resizing stops, and skips the write if the encoded widths did not
change since the last successful one.
*/
package viewstate
