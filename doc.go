// Package classgraph implements the directory-scanning core of a classpath
// scanner: it discovers named binary resources under configured root
// directories, filters them through an include/exclude policy, and produces
// lazily-materialized, safely-closable handles to their contents.
//
// A root directory is modeled as an Element. Opening an element discovers
// nested roots (library archives and exploded package roots) and submits
// them as new work; scanning it walks the tree depth-first in deterministic
// name order, guarded against symlink cycles, and collects a Resource for
// every file the policy selects. Scanner ties the two together into a
// parallel pipeline over any number of roots.
//
// Scans degrade gracefully: inaccessible subtrees are skipped with a log
// entry, and a policy-level reject skips a whole root without failing the
// run. Archive containers discovered during scanning are not parsed here;
// they are surfaced for a collaborator to handle.
//
// Example usage:
//
//	scanner := classgraph.NewScanner(
//	    classgraph.WithSpec(scanspec.New(scanspec.WithIncludePackages("com/example"))),
//	)
//	result, err := scanner.Scan(ctx, "/srv/app/classes")
//	if err != nil {
//	    return err
//	}
//	for _, res := range result.Resources {
//	    data, err := res.Load()
//	    ...
//	}
package classgraph
