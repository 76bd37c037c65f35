// Package archive writes reproducible gzip-compressed tarballs of a directory
// tree and computes streamed SHA-256 checksums of the results.
//
// Members are the regular files of the tree, named by their slash-separated
// path relative to the source directory and written in lexical order of that
// path. Headers carry no owner information and gzip headers carry no
// timestamp, so an unchanged tree always produces the same bytes.
package archive
