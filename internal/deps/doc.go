// Package deps checks that the external programs rarpack drives are installed.
package deps
