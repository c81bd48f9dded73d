// Package discovery lists the entries of source folders that still need to be
// compressed and returns them as an ordered backlog.
//
// Each source folder is listed non-recursively: directories first, then files,
// each group sorted by name, hidden entries included and symbolic links
// skipped. Folders are processed in the order the caller supplies. A folder
// that cannot be prepared or listed is reported and skipped; discovery of the
// remaining folders continues.
package discovery
