// Command assess runs a single risk assessment from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/liamcoop/cardiorisk/assessment"
	"github.com/liamcoop/cardiorisk/bands"
	"github.com/liamcoop/cardiorisk/internal/config"
	"github.com/liamcoop/cardiorisk/predictor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, sends one prediction and prints the outcome.
// It returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 2
	}

	req := assessment.NewRequest()

	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&req.Age, "age", req.Age, "Age in years")
	fs.StringVar(&req.Gender, "gender", req.Gender, "Gender: 1 female, 2 male")
	fs.StringVar(&req.ApHi, "ap_hi", req.ApHi, "Systolic blood pressure (mmHg)")
	fs.StringVar(&req.ApLo, "ap_lo", req.ApLo, "Diastolic blood pressure (mmHg)")
	fs.StringVar(&req.Cholesterol, "cholesterol", req.Cholesterol, "Cholesterol: 1 normal, 2 above normal, 3 well above normal")
	fs.StringVar(&req.Gluc, "gluc", req.Gluc, "Glucose: 1 normal, 2 above normal, 3 well above normal")
	fs.StringVar(&req.Smoke, "smoke", req.Smoke, "Smoker: 0 or 1")
	fs.StringVar(&req.Alco, "alco", req.Alco, "Alcohol consumption: 0 or 1")
	fs.StringVar(&req.Active, "active", req.Active, "Physically active: 0 or 1")
	fs.StringVar(&req.BMI, "bmi", req.BMI, "Body mass index (kg/m²)")

	endpoint := fs.String("endpoint", cfg.EndpointURL, "Prediction endpoint URL")
	timeout := fs.Duration("timeout", cfg.PredictTimeout, "Request timeout (0 for none)")
	bandsFile := fs.String("bands", cfg.BandsFile, "JSON file overriding the band tables")
	strict := fs.Bool("strict", cfg.StrictValidation, "Validate the payload before sending")
	dryRun := fs.Bool("dry-run", false, "Print the payload without sending it")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	registry := bands.NewDefaultRegistry()
	if *bandsFile != "" {
		if err := registry.LoadFile(*bandsFile); err != nil {
			fmt.Fprintf(stderr, "Failed to load band tables: %v\n", err)
			return 1
		}
	}
	transformer, err := assessment.NewTransformer(registry)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	payload := transformer.Build(req)
	if err := printPayload(stdout, payload); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	if *strict {
		if err := assessment.Validate(payload); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
	}
	if *dryRun {
		return 0
	}

	client := predictor.NewClient(*endpoint, predictor.WithTimeout(*timeout))

	start := time.Now()
	resp, err := client.Predict(ctx, uuid.NewString(), payload)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", predictor.UserMessage(err))
		fmt.Fprintf(stderr, "Cause: %v\n", err)
		return 1
	}

	outcome, ok := assessment.NewOutcome(resp.Output)
	if !ok {
		fmt.Fprintf(stderr, "%s\n", predictor.GenericFailureMessage)
		return 1
	}

	fmt.Fprintf(stdout, "%s (%s)\n%s\n", outcome.Title, time.Since(start).Round(time.Millisecond), outcome.Message)
	return 0
}

func printPayload(w io.Writer, payload any) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	_, err = fmt.Fprintf(w, "Payload:\n%s\n", encoded)
	return err
}
