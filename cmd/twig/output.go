// cmd/twig/output.go
package main

import (
	"fmt"
	"io"
	"strings"

	twigerrors "twig/internal/errors"
	"twig/internal/merge"
	"twig/internal/object"
	"twig/internal/repo"

	"github.com/fatih/color"
)

const dateLayout = "Mon Jan 2 15:04:05 2006 -0700"

func printCommitReport(w io.Writer, branch, message string, report *repo.CommitReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "[%s %s] %s\n", branch, short(report.Hash), message)
	fmt.Fprintf(w, " %s, %s\n",
		green(fmt.Sprintf("+%d (addition)", report.Additions)),
		red(fmt.Sprintf("-%d (removal)", report.Removals)))
}

func printLog(w io.Writer, commits []*object.Commit) {
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, c := range commits {
		fmt.Fprintln(w, "===")
		fmt.Fprintln(w, yellow("commit "+c.Hash))
		if c.IsMerge() {
			fmt.Fprintf(w, "Merge: %s %s\n", short(c.Parent), short(c.SecondParent))
		}
		fmt.Fprintf(w, "Date: %s\n", c.Timestamp.Local().Format(dateLayout))
		fmt.Fprintln(w, c.Message)
		fmt.Fprintln(w)
	}
}

func printStatus(w io.Writer, s *repo.Status) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	fmt.Fprintln(w, "=== Branches ===")
	for _, b := range s.Branches {
		if b.Current {
			fmt.Fprintln(w, green("*"+b.Name))
		} else {
			fmt.Fprintln(w, b.Name)
		}
	}

	fmt.Fprintln(w, "\n=== Staged Files ===")
	for _, p := range s.Staged {
		fmt.Fprintln(w, green(p))
	}

	fmt.Fprintln(w, "\n=== Removed Files ===")
	for _, p := range s.Removed {
		fmt.Fprintln(w, red(p))
	}

	fmt.Fprintln(w, "\n=== Modifications Not Staged For Commit ===")
	for _, c := range s.Modified {
		state := "modified"
		if c.Deleted {
			state = "deleted"
		}
		fmt.Fprintln(w, yellow(fmt.Sprintf("%s (%s)", c.Path, state)))
	}

	fmt.Fprintln(w, "\n=== Untracked Files ===")
	for _, p := range s.Untracked {
		fmt.Fprintln(w, blue(p))
	}
	fmt.Fprintln(w)
}

func printMerge(w io.Writer, result *merge.Result) {
	red := color.New(color.FgRed).SprintFunc()

	for _, p := range result.Conflicts {
		fmt.Fprintln(w, red(twigerrors.MergeConflict(p).Error()))
	}
	for _, msg := range result.Messages {
		fmt.Fprintln(w, msg)
	}
}

func printColoredDiff(w io.Writer, diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			header.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			added.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			removed.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
