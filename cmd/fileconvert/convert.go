package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	fileconvert "github.com/nicholasgasior/fileconvert-go"
)

var convertCmd = &cobra.Command{
	Use:   "convert -t <format> [files...|-]",
	Short: "Convert files to another format",
	Long: `Convert reads each file, converts it to the requested format and writes the
result. With a single input and no --out-dir the result goes to stdout;
otherwise each result is written to --out-dir under its suggested name.

Use "-" to read from stdin; --name then supplies the filename used to
recognize the input format.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("to", "t", "", "output format (md, txt, json, csv, png, jpg, ...)")
	convertCmd.Flags().StringP("out-dir", "o", "", "directory for converted files")
	convertCmd.Flags().Int("jobs", 4, "number of files converted concurrently")
	convertCmd.Flags().String("mime", "", "declared MIME type of the inputs")
	convertCmd.Flags().String("charset", "", "charset of text inputs (detected when empty)")
	convertCmd.Flags().String("name", "stdin", "filename for stdin input, e.g. data.csv")
	convertCmd.MarkFlagRequired("to")

	viper.BindPFlag("jobs", convertCmd.Flags().Lookup("jobs"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	to, _ := cmd.Flags().GetString("to")
	outDir, _ := cmd.Flags().GetString("out-dir")
	mimeType, _ := cmd.Flags().GetString("mime")
	charset, _ := cmd.Flags().GetString("charset")
	stdinName, _ := cmd.Flags().GetString("name")

	if _, ok := fileconvert.ParseOutputKind(to); !ok {
		return fmt.Errorf("unknown output format %q", to)
	}
	if err := checkInputs(args); err != nil {
		return err
	}
	toStdout := outDir == "" && len(args) == 1
	if outDir == "" {
		outDir = "."
	}

	jobs := viper.GetInt("jobs")
	if jobs < 1 {
		jobs = 1
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	engine := newEngine(newLogger())
	stderr := cmd.ErrOrStderr()

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for _, arg := range args {
		g.Go(func() error {
			req, err := readRequest(cmd.InOrStdin(), arg, stdinName)
			if err != nil {
				failed.Add(1)
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return nil
			}
			req.Output = to
			req.MIMEType = mimeType
			req.Charset = charset

			res, err := engine.Convert(gctx, req)
			if err != nil {
				failed.Add(1)
				reportError(stderr, req.Filename, err)
				return nil
			}
			if res.Diagnostic {
				fmt.Fprintf(stderr, "%s: no text could be extracted; wrote a diagnostic report\n", req.Filename)
			}

			if toStdout {
				_, err = cmd.OutOrStdout().Write(res.Payload)
				return err
			}
			_, err = writeResult(outDir, res)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d conversions failed", n, len(args))
	}
	return nil
}

func readRequest(stdin io.Reader, arg, stdinName string) (fileconvert.Request, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fileconvert.Request{}, fmt.Errorf("read stdin: %w", err)
		}
		return fileconvert.Request{Data: data, Filename: stdinName}, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return fileconvert.Request{}, fmt.Errorf("read input: %w", err)
	}
	return fileconvert.Request{Data: data, Filename: filepath.Base(arg)}, nil
}

// checkInputs rejects reading stdin more than once.
func checkInputs(args []string) error {
	stdin := 0
	for _, arg := range args {
		if arg == "-" {
			stdin++
		}
	}
	if stdin > 1 {
		return errors.New(`"-" (stdin) can be given only once`)
	}
	return nil
}

// maxNameAttempts bounds the numeric suffixes tried for one output file.
const maxNameAttempts = 1000

// writeResult writes res into dir under its suggested name and returns the
// path written. Existing files are never replaced; a numeric suffix is added
// instead, so concurrent conversions with the same suggested name both survive.
func writeResult(dir string, res *fileconvert.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	ext := filepath.Ext(res.Filename)
	stem := strings.TrimSuffix(res.Filename, ext)
	for i := 0; i < maxNameAttempts; i++ {
		name := res.Filename
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("write output: %w", err)
		}
		if _, err := f.Write(res.Payload); err != nil {
			f.Close()
			return "", fmt.Errorf("write output: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("write output: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("write output: no free file name for %s in %s", res.Filename, dir)
}

func reportError(w io.Writer, filename string, err error) {
	fmt.Fprintf(w, "Error: %s: %v\n", filename, err)
	var ce *fileconvert.ConversionError
	if !errors.As(err, &ce) || ce.Diagnostics == nil {
		return
	}
	for _, c := range ce.Diagnostics.Causes {
		fmt.Fprintf(w, "  possible cause: %s\n", c)
	}
	for _, s := range ce.Diagnostics.Suggestions {
		fmt.Fprintf(w, "  suggestion: %s\n", s)
	}
}

