package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	llmFlags := []cli.Flag{
		&cli.StringFlag{Name: "llm-url", Usage: "chat-completions endpoint of the generative backend"},
		&cli.StringFlag{Name: "llm-model", Usage: "model name sent to the backend"},
		&cli.StringFlag{Name: "llm-provider", Usage: "backend provider: openai or ollama"},
		&cli.DurationFlag{Name: "llm-timeout", Usage: "timeout for each backend call"},
	}

	runFlags := append([]cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "path of the generated table"},
		&cli.StringFlag{Name: "base-url", Usage: "site base URL used to build source locators"},
		&cli.IntFlag{Name: "workers", Usage: "documents processed at the same time"},
		&cli.DurationFlag{Name: "fetch-timeout", Usage: "timeout for each HTTP fetch"},
	}, llmFlags...)

	return &cli.App{
		Name:  "sitekb",
		Usage: "build a question-answer knowledge base from a site's pages and documents",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config file"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "console or json"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address during a run"},
		},
		Commands: []*cli.Command{
			{
				Name:  "files",
				Usage: "process a local tree of .html, .pdf and .docx files",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "corpus root directory"},
					&cli.StringSliceFlag{Name: "ext", Usage: "file extensions to process"},
				}, runFlags...),
				Action: FilesAction,
			},
			{
				Name:  "urls",
				Usage: "fetch and classify a fixed list of URLs",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "url", Aliases: []string{"u"}, Usage: "URL to process, repeatable"},
					&cli.StringFlag{Name: "urls-file", Usage: "file with one URL per line"},
				}, runFlags...),
				Action: URLsAction,
			},
			{
				Name:  "import",
				Usage: "load a generated table into the Postgres knowledge store",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "table to import", Required: true},
					&cli.StringFlag{Name: "mode", Value: "add", Usage: "add or replace"},
					&cli.BoolFlag{Name: "embed", Usage: "store an embedding of each question"},
					&cli.StringFlag{Name: "db-url", Usage: "PostgreSQL connection string"},
					&cli.StringFlag{Name: "table", Usage: "destination table"},
				},
				Action: ImportAction,
			},
			{
				Name:  "search",
				Usage: "print the stored records nearest to a question",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "question to look up", Required: true},
					&cli.IntFlag{Name: "limit", Value: 5, Usage: "number of records to print"},
					&cli.StringFlag{Name: "db-url", Usage: "PostgreSQL connection string"},
					&cli.StringFlag{Name: "table", Usage: "table to search"},
				},
				Action: SearchAction,
			},
			{
				Name:   "probe",
				Usage:  "check that the generative backend answers",
				Flags:  llmFlags,
				Action: ProbeAction,
			},
		},
	}
}
