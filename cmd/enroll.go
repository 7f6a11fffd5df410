package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <directory>",
	Short: "Bulk enroll students from a directory of photos",
	Long: `Enroll students and their face samples from a directory tree.

Every subdirectory is one student; its name is the student id. Each image
inside becomes a face sample. Students that do not exist yet are created,
using the directory name as their display name unless it is overridden.

Layout:
  photos/
    S001_jan_novak/    front.jpg side.png
    S002_anna_svoboda/ 1.jpg

Examples:
  # Enroll everybody under ./photos into class 1A
  face-attendance enroll ./photos --class 1A

  # Show what would be enrolled
  face-attendance enroll ./photos --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("class", "", "Class name for newly created students")
	enrollCmd.Flags().String("separator", "_", "Separator between student id and name in directory names")
	enrollCmd.Flags().Bool("dry-run", false, "List the students and images without enrolling")
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

// enrollEntry is one student directory.
type enrollEntry struct {
	StudentID string
	Name      string
	Images    []string
}

// parseStudentDir splits "S001_jan_novak" into id "S001" and name "Jan Novak".
func parseStudentDir(dir, separator string) (id, name string) {
	id, rest, ok := strings.Cut(dir, separator)
	if !ok || separator == "" {
		return dir, dir
	}
	rest = strings.Join(strings.FieldsFunc(rest, func(r rune) bool {
		return strings.ContainsRune(separator+" ", r)
	}), " ")
	if rest == "" {
		return id, id
	}
	return id, cases.Title(language.Und).String(rest)
}

// scanEnrollDir collects student directories and their images in name order.
func scanEnrollDir(root, separator string) ([]enrollEntry, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}

	var entries []enrollEntry
	for _, d := range dirs {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", d.Name(), err)
		}

		id, name := parseStudentDir(d.Name(), separator)
		entry := enrollEntry{StudentID: id, Name: name}
		for _, f := range files {
			if !f.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
				entry.Images = append(entry.Images, filepath.Join(root, d.Name(), f.Name()))
			}
		}
		sort.Strings(entry.Images)
		if len(entry.Images) > 0 {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// EnrollSummary reports the outcome of a bulk enrollment.
type EnrollSummary struct {
	Created int
	Samples int
	Skipped []string
}

// enrollEntries creates missing students and adds every readable face.
// Images without a detectable face are skipped, any other error aborts.
func enrollEntries(ctx context.Context, svc *attendance.Service, entries []enrollEntry, class string, bar *progressbar.ProgressBar) (EnrollSummary, error) {
	var summary EnrollSummary
	for _, e := range entries {
		_, err := svc.EnrollStudent(ctx, attendance.NewStudent{StudentID: e.StudentID, Name: e.Name, ClassName: class}, nil)
		switch {
		case err == nil:
			summary.Created++
		case errors.Is(err, attendance.ErrConflict):
			// Already enrolled, only add faces.
		default:
			return summary, fmt.Errorf("creating student %s: %w", e.StudentID, err)
		}

		for _, path := range e.Images {
			if err := enrollImage(ctx, svc, e.StudentID, path); err != nil {
				if !errors.Is(err, attendance.ErrInvalidInput) {
					return summary, err
				}
				summary.Skipped = append(summary.Skipped, fmt.Sprintf("%s: %v", path, err))
			} else {
				summary.Samples++
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}
	return summary, nil
}

func enrollImage(ctx context.Context, svc *attendance.Service, studentID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	img, err := attendance.DecodeImage(data)
	if err != nil {
		return err
	}
	_, err = svc.AddFace(ctx, studentID, img)
	return err
}

func runEnroll(cmd *cobra.Command, args []string) error {
	class := mustGetString(cmd, "class")
	dryRun := mustGetBool(cmd, "dry-run")

	entries, err := scanEnrollDir(args[0], mustGetString(cmd, "separator"))
	if err != nil {
		return err
	}
	total := 0
	for _, e := range entries {
		total += len(e.Images)
	}
	fmt.Printf("Found %d students with %d images\n", len(entries), total)

	if dryRun {
		for _, e := range entries {
			fmt.Printf("  %-12s %-30s %d images\n", e.StudentID, e.Name, len(e.Images))
		}
		return nil
	}
	if total == 0 {
		return nil
	}

	ctx := context.Background()
	a, err := newApp(ctx, config.Load(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	summary, err := enrollEntries(ctx, a.svc, entries, class, bar)
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("Created %d students, added %d face samples\n", summary.Created, summary.Samples)
	if len(summary.Skipped) > 0 {
		fmt.Printf("Skipped %d images:\n", len(summary.Skipped))
		for _, s := range summary.Skipped {
			fmt.Printf("  %s\n", s)
		}
	}
	return nil
}
