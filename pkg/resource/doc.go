/*
Package resource implements the in-memory resource bag of spec §3
(Component C): a subject plus its (property URL -> Value) propvals, with
deterministic lexicographic iteration for commit signing.

It also declares the well-known property and class URLs of the bootstrap
ontology (spec §4.7) and the Property schema type (spec §9). Commit
application (spec §4.2 stage 7) validates values against the datatype
carried in the commit and does not consult a Property schema.
*/
package resource
