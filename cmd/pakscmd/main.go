// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Command pakscmd creates, inspects, and edits PAKS archives from the shell.
// Grounded verb-for-verb on original_source's src/bin/pakscmd.rs.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/elliotnunn/paks"
)

func main() {
	args := os.Args[1:]

	switch {
	case len(args) == 0, args[0] == "help" && len(args) == 1:
		fmt.Print(helpGeneral)
	case len(args) == 1:
		fmt.Fprintln(os.Stderr, "Error invalid syntax, see `pakscmd help`.")
	case args[0] == "help":
		help(args[1:])
	case len(args) == 2:
		fmt.Fprintln(os.Stderr, "Error invalid syntax, see `pakscmd help`.")
	default:
		file, key, cmd, rest := args[0], args[1], args[2], args[3:]
		switch cmd {
		case "help":
			help(rest)
		case "new":
			cmdNew(file, key, rest)
		case "tree":
			cmdTree(file, key, rest)
		case "add":
			cmdAdd(file, key, rest)
		case "copy":
			cmdCopy(file, key, rest)
		case "link":
			cmdLink(file, key, rest)
		case "cat":
			cmdCat(file, key, rest)
		case "rm":
			cmdRm(file, key, rest)
		case "mv":
			cmdMv(file, key, rest)
		case "fsck":
			cmdFsck(file, key, rest)
		case "gc":
			cmdGC(file, key, rest)
		case "dbg":
			cmdDbg(file, key, rest)
		default:
			fmt.Fprintf(os.Stderr, "Error unknown subcommand: %s\n", cmd)
		}
	}
}

func parseKey(s string) (paks.Key, bool) {
	key, err := paks.ParseKey(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing key argument: %s\n", err)
		return paks.Key{}, false
	}
	return key, true
}

// expandGlobs resolves any doublestar pattern in paths against the archive's
// directory, in argument order, with non-matching literal paths passed
// through unchanged so plain (non-glob) paths still work when no file
// happens to match them yet.
func expandGlobs(dir *paks.Directory, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !doublestar.ValidatePattern(p) || !strings.ContainsAny(p, "*?[{") {
			out = append(out, p)
			continue
		}
		matched := false
		for name := range dir.Walk() {
			ok, err := doublestar.Match(p, strings.TrimPrefix(name, "/"))
			if err == nil && ok {
				out = append(out, name)
				matched = true
			}
		}
		if !matched {
			out = append(out, p)
		}
	}
	return out
}

//----------------------------------------------------------------

const helpGeneral = `pakscmd

USAGE
    pakscmd help <COMMAND>
    pakscmd <PAKFILE> <KEY> <COMMAND> [..]

ARGUMENTS
    PAKFILE  Path to a PAKS archive to create or edit.
    KEY      The 128-bit encryption key encoded in hex.
    COMMAND  The subcommand to invoke.

Commands are:
    new      Creates a new empty PAKS archive.
    tree     Displays the directory of the PAKS archive.
    add      Adds a file to the PAKS archive.
    copy     Copies files to the PAKS archive.
    link     Links the file from alternative paths.
    cat      Reads files from the PAKS archive and writes to stdout.
    rm       Removes paths from the PAKS archive.
    mv       Moves files in the PAKS archive.
    fsck     File system consistency check.
    gc       Collects garbage left behind by removed files.
    dbg      Dumps the raw directory structure for debugging.
`

var helpTopics = map[string]string{
	"new":  helpNew,
	"tree": helpTree,
	"add":  helpAdd,
	"copy": helpCopy,
	"link": helpLink,
	"cat":  helpCat,
	"rm":   helpRm,
	"mv":   helpMv,
	"fsck": helpFsck,
	"gc":   helpGC,
}

func help(args []string) {
	if len(args) != 1 {
		fmt.Print(helpGeneral)
		return
	}
	if topic, ok := helpTopics[args[0]]; ok {
		fmt.Print(topic)
		return
	}
	fmt.Fprintf(os.Stderr, "Error unknown command: %s\n", args[0])
}

//----------------------------------------------------------------

const helpNew = `NAME
    pakscmd-new - Creates a new empty PAKS archive.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> new

DESCRIPTION
    Creates a new empty PAKS archive, overwriting any existing file.
`

func cmdNew(file, keyArg string, _ []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}
	// vfs.FS.Create truncates an existing file, matching
	// original_source's create_empty overwrite semantics.
	edit, err := paks.CreateFileArchive(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %s\n", file, err)
		return
	}
	defer edit.Close()
	if err := edit.Finish(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", file, err)
	}
}

//----------------------------------------------------------------

const helpTree = `NAME
    pakscmd-tree - Displays the directory of the PAKS archive.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> tree [-a|-u] [PATH]

DESCRIPTION
    Displays the directory tree of the PAKS archive, in the order entries
    were created (the engine never sorts).

ARGUMENTS
    -a   Use plain ASCII branch characters instead of Unicode.
    -u   Use Unicode branch characters (the default).
    PATH Must name an existing entry; the whole tree from the root is
         displayed either way.
`

func cmdTree(file, keyArg string, args []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}

	style := paks.TreeStyleUnicode
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "-a":
			style = paks.TreeStyleASCII
		case "-u":
			style = paks.TreeStyleUnicode
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n", args[0])
		}
		args = args[1:]
	}

	reader, err := paks.OpenReadOnly(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer reader.Close()

	dir := reader.Directory()
	if len(args) == 1 {
		if i := dir.Find(args[0]); i < 0 {
			fmt.Fprintf(os.Stderr, "Error directory not found or is a file: %s\n", args[0])
			return
		}
	}

	if err := dir.WriteTree(os.Stdout, style); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing tree: %s\n", err)
	}
}

//----------------------------------------------------------------

const helpAdd = `NAME
    pakscmd-add - Adds a file to the PAKS archive.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> add <PATH> < <CONTENT>

DESCRIPTION
    Adds a file to the PAKS archive.

ARGUMENTS
    PATH     The destination path in the PAKS archive to put the file.
    CONTENT  The file data to write in the PAKS archive passed via stdin.
`

func cmdAdd(file, keyArg string, args []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error invalid path: expected exactly 1 argument.")
		return
	}
	path := args[0]

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stdin: %s\n", err)
		return
	}

	edit, err := paks.OpenFileArchive(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer edit.Close()

	if err := edit.CreateFile(path, data); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %s\n", path, err)
	}
	if err := edit.Finish(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", file, err)
	}
}

//----------------------------------------------------------------

const helpCopy = `NAME
    pakscmd-copy - Copies files to the PAKS archive.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> copy <PATH> [FILE]..

DESCRIPTION
    Copies files and directories from the local filesystem to the PAKS
    archive, recursively.
`

func cmdCopy(file, keyArg string, args []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error invalid syntax: expecting one path followed by many filenames.")
		return
	}
	if len(args) == 1 {
		return
	}
	basePath := args[0]

	edit, err := paks.OpenFileArchive(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer edit.Close()

	for _, src := range args[1:] {
		copyRec(edit, src, basePath, true)
	}

	if err := edit.Finish(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", file, err)
	}
}

func copyRec(edit *paks.FileEditor, srcPath, destPath string, root bool) {
	info, err := os.Stat(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %s\n", srcPath, err)
		return
	}

	if info.Mode().IsRegular() {
		data, err := os.ReadFile(srcPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %s\n", srcPath, err)
			return
		}
		name := filepath.Base(srcPath)
		dest := joinArchivePath(destPath, name)
		if root {
			dest = destPath
		}
		if err := edit.CreateFile(dest, data); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %s\n", dest, err)
		}
		return
	}

	if info.IsDir() {
		dest := destPath
		if !root {
			dest = joinArchivePath(destPath, filepath.Base(srcPath))
		}
		if !root {
			if err := edit.CreateDir(dest); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating %s: %s\n", dest, err)
			}
		}

		entries, err := os.ReadDir(srcPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %s\n", srcPath, err)
			return
		}
		for _, e := range entries {
			copyRec(edit, filepath.Join(srcPath, e.Name()), dest, false)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "Warning skipping %s: not a file or directory\n", srcPath)
}

func joinArchivePath(base, name string) string {
	if base == "" {
		return name
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}

//----------------------------------------------------------------

const helpLink = `NAME
    pakscmd-link - Links the file from alternative paths.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> link <SRC> [DEST]..

DESCRIPTION
    Links the source file to alternative destination paths.
    Returns file not found error if the SRC path does not exist.

ARGUMENTS
    SRC      Path to the source file to link.
    DEST     One or more destination paths where to link the SRC.
`

func cmdLink(file, keyArg string, args []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error invalid syntax: expecting a source file")
		return
	}
	srcPath, destPaths := args[0], args[1:]

	edit, err := paks.OpenFileArchive(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer edit.Close()

	for _, dest := range destPaths {
		if err := edit.Link(dest, srcPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error file not found: %s\n", srcPath)
		}
	}

	if err := edit.Finish(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", file, err)
	}
}

//----------------------------------------------------------------

const helpCat = `NAME
    pakscmd-cat - Reads files from the PAKS archive and writes to stdout.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> cat [PATH]..

DESCRIPTION
    Reads files from the PAKS archive and writes to stdout.
    Each file is read in the order specified and written to stdout one
    after another. If an error happens it is printed and execution
    continues with the rest of the files.

ARGUMENTS
    PATH     Path to the file in the PAKS archive to output. May be a
             doublestar glob (e.g. "docs/**/*.txt").
`

func cmdCat(file, keyArg string, args []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}

	reader, err := paks.OpenReadOnly(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer reader.Close()

	for _, path := range expandGlobs(reader.Directory(), args) {
		data, err := reader.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %s\n", path, err)
			continue
		}
		if _, err := os.Stdout.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s to stdout: %s\n", path, err)
		}
	}
}

//----------------------------------------------------------------

const helpRm = `NAME
    pakscmd-rm - Removes files from the PAKS archive.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> rm [PATH]..

DESCRIPTION
    Removes files and directories from the PAKS archive, subtree included.

ARGUMENTS
    PATH     Path to remove from the PAKS archive. May be a doublestar
             glob (e.g. "tmp/**").
`

func cmdRm(file, keyArg string, args []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}

	edit, err := paks.OpenFileArchive(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer edit.Close()

	for _, path := range expandGlobs(edit.Directory(), args) {
		if err := edit.Remove(path); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to remove %s: file not found?\n", path)
		}
	}

	if err := edit.Finish(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", file, err)
	}
}

//----------------------------------------------------------------

const helpMv = `NAME
    pakscmd-mv - Moves files in the PAKS archive.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> mv <SRC> <DEST>

DESCRIPTION
    Moves files in the PAKS archive.

ARGUMENTS
    SRC      Path to the source file.
    DEST     Path to the destination file.
`

func cmdMv(file, keyArg string, args []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "Error invalid syntax: expecting exactly two path arguments.")
		return
	}
	srcPath, destPath := args[0], args[1]

	edit, err := paks.OpenFileArchive(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer edit.Close()

	if err := edit.Move(srcPath, destPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error moving %s: %s\n", srcPath, err)
	}

	if err := edit.Finish(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", file, err)
	}
}

//----------------------------------------------------------------

const helpFsck = `NAME
    pakscmd-fsck - File system consistency check.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> fsck

DESCRIPTION
    Checks the PAKS file's directory for errors.
`

func cmdFsck(file, keyArg string, _ []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}

	reader, err := paks.OpenReadOnly(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer reader.Close()

	var log strings.Builder
	if !reader.Fsck(&log) {
		fmt.Print("PAKS file contains errors:\n")
	} else {
		fmt.Print("No errors found!\n")
	}
	fmt.Print(log.String())
}

//----------------------------------------------------------------

const helpGC = `NAME
    pakscmd-gc - Collects garbage left behind by removed files.

SYNOPSIS
    pakscmd <PAKFILE> <KEY> gc

DESCRIPTION
    Collects garbage left behind by removed files.
    When files are removed their data is left behind. These blocks are
    unreadable because their cryptographic nonce is forgotten, but they
    still take up space until a gc.
`

func cmdGC(file, keyArg string, _ []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}

	edit, err := paks.OpenFileArchive(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer edit.Close()

	if err := edit.GC(); err != nil {
		fmt.Fprintf(os.Stderr, "Error collecting garbage in %s: %s\n", file, err)
		return
	}

	if err := edit.Finish(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %s\n", file, err)
	}
}

//----------------------------------------------------------------

func cmdDbg(file, keyArg string, _ []string) {
	key, ok := parseKey(keyArg)
	if !ok {
		return
	}

	reader, err := paks.OpenReadOnly(nil, file, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", file, err)
		return
	}
	defer reader.Close()

	for path, desc := range reader.Directory().Walk() {
		fmt.Printf("%s\t%+v\n", path, desc)
	}
}
