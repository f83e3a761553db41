/*
Package artifact handles the naming and caching rules shared by every
derivative generator.

Artifacts are content-addressed by a naming key: the file's stable
fingerprint when one exists, or a random 12-character token otherwise.
A derivative is only built when its destination path does not already
exist; the existence check is the entire cache, there is no invalidation.

The package also owns the scratch directory convention. Each generator
works inside <scratch root>/<prefix><key> so concurrent scenes and
generators never share a directory, and CleanStale sweeps directories a
crashed run left behind.
*/
package artifact
