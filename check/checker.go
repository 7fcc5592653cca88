// Package check finds stylesheets of documents, local files and archives,
// analyzes them against target runtimes and reports the outcome.
package check

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"csscompat/analyze"
	"csscompat/archive"
	"csscompat/config"
	"csscompat/css"
)

// Options control how sources are processed.
type Options struct {
	// Concurrency is the number of stylesheets analyzed at the same time,
	// 0 - number of CPUs.
	Concurrency   int
	FollowImports bool
	ImportDepth   int
	MaxBytes      int64
}

// Checker runs analysis of all stylesheets found in sources.
type Checker struct {
	analyzer *analyze.Analyzer
	parser   *css.Parser
	loader   *loader
	opts     Options
	rpt      *config.Report
	stdin    io.Reader
	log      *zap.Logger
}

func New(an *analyze.Analyzer, fetcher *Fetcher, opts Options, rpt *config.Report, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		analyzer: an,
		parser:   css.NewParser(log),
		loader:   &loader{fetcher: fetcher, maxBytes: opts.MaxBytes},
		opts:     opts,
		rpt:      rpt,
		stdin:    os.Stdin,
		log:      log,
	}
}

// job is a single stylesheet to analyze.
type job struct {
	ref analyze.Ref
	// stylesheet location or, for inline stylesheets, location references
	// are resolved against
	base    location
	inline  bool
	text    string
	loaded  bool
	data    []byte
	ctype   string
	charset string // encoding of referring document or stylesheet
	parent  string
	depth   int
}

type entry struct {
	sheet  Sheet
	result *analyze.Result
	err    error
}

// Check analyzes every stylesheet of sources. Problems with a particular
// source or stylesheet are recorded in the report and do not stop processing.
func (c *Checker) Check(ctx context.Context, sources []string) (*Report, error) {
	rep := newReport(sources, c.analyzer)

	var (
		jobs []job
		seen = make(map[string]bool)
	)
	for _, src := range sources {
		found, err := c.collect(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Error("Unable to process source", zap.String("source", src), zap.Error(err))
			rep.fail(src, err)
			continue
		}
		if len(found) == 0 {
			c.log.Warn("No stylesheets found", zap.String("source", src))
		}
		for _, j := range found {
			if !j.inline {
				key := j.base.String()
				if seen[key] {
					c.log.Debug("Skipping already collected stylesheet", zap.String("stylesheet", key))
					continue
				}
				seen[key] = true
			}
			jobs = append(jobs, j)
		}
	}

	c.log.Debug("Analyzing stylesheets", zap.Int("stylesheets", len(jobs)), zap.Int("runtimes", len(c.analyzer.Targets())))

	outcomes, err := c.analyzeAll(ctx, jobs, seen)
	if err != nil {
		return nil, err
	}
	// merged in collection order regardless of completion order
	for _, entries := range outcomes {
		for _, e := range entries {
			if e.err != nil {
				c.log.Error("Unable to analyze stylesheet", zap.Stringer("stylesheet", e.sheet.Ref), zap.Error(e.err))
				rep.fail(e.sheet.Ref.String(), e.err)
				continue
			}
			rep.StyleSheets = append(rep.StyleSheets, e.sheet)
			rep.Result.Merge(e.result)
		}
	}
	rep.Elapsed = time.Since(rep.Started)
	return rep, nil
}

func (c *Checker) concurrency() int {
	if c.opts.Concurrency > 0 {
		return c.opts.Concurrency
	}
	return runtime.NumCPU()
}

// analyzeAll processes jobs concurrently. Imports of stylesheets in collected
// are not analyzed again. Returned outcomes are in jobs order, only
// cancellation is reported as error.
func (c *Checker) analyzeAll(ctx context.Context, jobs []job, collected map[string]bool) ([][]entry, error) {
	outcomes := make([][]entry, len(jobs))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency())
	for i, j := range jobs {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			defer func() {
				// one broken stylesheet should not take the rest down
				if r := recover(); r != nil {
					c.log.Error("Analysis ended with panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
					outcomes[i] = []entry{{sheet: Sheet{Ref: j.ref}, err: fmt.Errorf("analysis panic: %v", r)}}
				}
			}()

			outcomes[i] = c.process(egctx, j, maps.Clone(collected))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// process analyzes stylesheet of the job and, when requested, stylesheets it
// imports. Seen keeps locations already analyzed in this import tree.
func (c *Checker) process(ctx context.Context, j job, seen map[string]bool) []entry {
	sheet := Sheet{Ref: j.ref, Source: j.base.String(), ImportedBy: j.parent}

	text, enc, err := c.textOf(ctx, j)
	if err != nil {
		return []entry{{sheet: sheet, err: fmt.Errorf("%s: %w", j.ref, err)}}
	}
	sheet.Charset = enc

	parsed := c.parser.ParseString(text, j.ref.String())
	res := c.analyzer.Analyze(parsed, j.ref)

	sheet.Rules = len(parsed.Rules)
	sheet.Declarations = parsed.CountDeclarations()
	sheet.Warnings = len(parsed.Warnings)
	c.store(j.ref, text, parsed)

	out := []entry{{sheet: sheet, result: res}}

	imports := parsed.Imports()
	if !c.opts.FollowImports || len(imports) == 0 {
		return out
	}
	if j.depth >= c.opts.ImportDepth {
		c.log.Warn("Import depth exceeded, imports are ignored",
			zap.Stringer("stylesheet", j.ref), zap.Int("depth", j.depth), zap.Strings("imports", imports))
		return out
	}

	for _, href := range imports {
		loc, err := j.base.resolve(href)
		if err != nil {
			out = append(out, entry{
				sheet: Sheet{Ref: analyze.Ref{Href: href}, ImportedBy: j.ref.String()},
				err:   fmt.Errorf("import from %s: %w", j.ref, err),
			})
			continue
		}
		key := loc.String()
		if seen[key] {
			c.log.Debug("Stylesheet is already imported", zap.String("stylesheet", key), zap.Stringer("by", j.ref))
			continue
		}
		seen[key] = true

		out = append(out, c.process(ctx, job{
			ref:     analyze.Ref{Href: key},
			base:    loc,
			charset: enc,
			parent:  j.ref.String(),
			depth:   j.depth + 1,
		}, seen)...)
	}
	return out
}

// textOf returns UTF-8 text of the stylesheet and its original encoding.
func (c *Checker) textOf(ctx context.Context, j job) (string, string, error) {
	if j.inline {
		return j.text, "", nil
	}
	data, ctype := j.data, j.ctype
	if !j.loaded {
		var err error
		if data, ctype, err = c.loader.load(ctx, j.base); err != nil {
			return "", "", err
		}
	}
	return decodeStyleSheet(data, ctype, j.charset)
}

// store puts stylesheet text and its parsed tree into debug report.
func (c *Checker) store(ref analyze.Ref, text string, sheet *css.Stylesheet) {
	if c.rpt == nil {
		return
	}
	name := slug.Make(ref.String())
	c.rpt.StoreData(fmt.Sprintf("stylesheets/%s.css", name), []byte(text))
	c.rpt.StoreData(fmt.Sprintf("stylesheets/%s.tree", name), []byte(sheet.Dump()))
}

// collect finds stylesheets of a single source: URL, local file, directory,
// archive (with optional path inside) or "-" for stdin.
func (c *Checker) collect(ctx context.Context, src string) ([]job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src == "-" {
		data, err := readLimited(c.stdin, c.opts.MaxBytes)
		if err != nil {
			return nil, fmt.Errorf("unable to read stdin: %w", err)
		}
		wd, _ := os.Getwd()
		return []job{{
			ref:    analyze.Ref{Href: "stdin"},
			base:   location{Path: filepath.Join(wd, "stdin")},
			loaded: true,
			data:   data,
		}}, nil
	}
	if u, err := url.Parse(src); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return c.collectRemote(ctx, location{URL: u})
	}
	return c.collectLocal(ctx, src)
}

func (c *Checker) collectRemote(ctx context.Context, loc location) ([]job, error) {
	data, ctype, err := c.loader.load(ctx, loc)
	if err != nil {
		return nil, err
	}
	if isStyleSheetType(ctype) || (!strings.Contains(ctype, "html") && strings.HasSuffix(strings.ToLower(loc.URL.Path), ".css")) {
		return []job{{
			ref:    analyze.Ref{Href: loc.String()},
			base:   loc,
			loaded: true,
			data:   data,
			ctype:  ctype,
		}}, nil
	}
	return c.documentJobs(loc, data, ctype)
}

// collectLocal splits path into existing file system part and path inside
// archive.
func (c *Checker) collectLocal(ctx context.Context, src string) ([]job, error) {
	src, err := filepath.Abs(src)
	if err != nil {
		return nil, err
	}

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return nil, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			return c.collectDir(ctx, head)
		}
		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		k, err := kindOfFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return nil, fmt.Errorf("unable to check file type: %w", err)
		}
		if k == kindArchive {
			// we need to look inside to see if path makes sense
			pathIn := strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			return c.collectArchive(ctx, head, filepath.ToSlash(pathIn))
		}
		if len(tail) != 0 {
			return nil, fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		return c.collectFile(ctx, location{Path: head}, k)
	}
	return nil, fmt.Errorf("input source was not found (%s)", src)
}

func (c *Checker) collectFile(ctx context.Context, loc location, k kind) ([]job, error) {
	switch k {
	case kindStyleSheet:
		return []job{{ref: analyze.Ref{Href: loc.String()}, base: loc}}, nil
	case kindDocument:
		data, ctype, err := c.loader.load(ctx, loc)
		if err != nil {
			return nil, err
		}
		return c.documentJobs(loc, data, ctype)
	}
	return nil, fmt.Errorf("input was not recognized as stylesheet, HTML document or archive (%s)", loc)
}

// collectDir walks directory tree finding stylesheets, documents and archives.
func (c *Checker) collectDir(ctx context.Context, dir string) ([]job, error) {
	var jobs []job
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			c.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		k, err := kindOfFile(path)
		if err != nil {
			c.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}

		var found []job
		switch k {
		case kindArchive:
			found, err = c.collectArchive(ctx, path, "")
		case kindDocument, kindStyleSheet:
			found, err = c.collectFile(ctx, location{Path: path}, k)
		default:
			c.log.Debug("Skipping file, not recognized as stylesheet, document or archive", zap.String("file", path))
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			return nil
		}
		jobs = append(jobs, found...)
		return nil
	})
	if len(jobs) == 0 && err == nil {
		c.log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return jobs, err
}

// collectArchive walks all files inside archive under pathIn.
func (c *Checker) collectArchive(ctx context.Context, path, pathIn string) ([]job, error) {
	var jobs []job
	err := archive.Walk(path, pathIn, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		loc := location{Archive: arc, Path: f.Name}
		switch kindOf(f.Name, nil) {
		case kindStyleSheet:
			jobs = append(jobs, job{ref: analyze.Ref{Href: loc.String()}, base: loc})
		case kindDocument:
			r, err := f.Open()
			if err != nil {
				c.log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
				return nil
			}
			data, err := readLimited(r, c.opts.MaxBytes)
			r.Close()
			if err != nil {
				c.log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
				return nil
			}
			found, err := c.documentJobs(loc, data, "")
			if err != nil {
				c.log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
				return nil
			}
			jobs = append(jobs, found...)
		default:
			c.log.Debug("Skipping file in archive", zap.String("archive", arc), zap.String("file", f.Name))
		}
		return nil
	})
	if len(jobs) == 0 && err == nil {
		c.log.Debug("Nothing to process", zap.String("archive", path), zap.String("path", pathIn))
	}
	return jobs, err
}

// documentJobs returns jobs for every stylesheet of HTML document.
func (c *Checker) documentJobs(doc location, data []byte, ctype string) ([]job, error) {
	text, enc, err := decodeDocument(data, ctype)
	if err != nil {
		return nil, err
	}
	sheets, baseHref, err := extractStyleSheets(text)
	if err != nil {
		return nil, fmt.Errorf("unable to parse document %s: %w", doc, err)
	}

	base := doc
	if len(baseHref) > 0 {
		if b, err := doc.resolve(baseHref); err == nil {
			base = b
		} else {
			c.log.Warn("Ignoring document base", zap.String("document", doc.String()), zap.Error(err))
		}
	}

	jobs := make([]job, 0, len(sheets))
	for _, s := range sheets {
		if s.inline() {
			jobs = append(jobs, job{
				ref:     analyze.Ref{Document: doc.String(), Index: s.Index},
				base:    base,
				inline:  true,
				text:    s.Text,
				charset: enc,
			})
			continue
		}
		loc, err := base.resolve(s.Href)
		if err != nil {
			c.log.Warn("Skipping stylesheet", zap.String("document", doc.String()), zap.String("href", s.Href), zap.Error(err))
			continue
		}
		jobs = append(jobs, job{
			ref:     analyze.Ref{Href: loc.String(), Document: doc.String(), Index: s.Index},
			base:    loc,
			charset: enc,
		})
	}
	c.log.Debug("Document processed", zap.String("document", doc.String()), zap.String("charset", enc), zap.Int("stylesheets", len(jobs)))
	return jobs, nil
}
