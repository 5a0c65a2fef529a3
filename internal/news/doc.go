// Package news defines the core types shared by the fetch, filter and score
// pipeline and by the delivery surfaces built on top of it.
package news
