// run-deepvariant sequences the three DeepVariant stages (make_examples,
// call_variants, postprocess_variants) into a single pipeline invocation.
//
// Usage:
//
//	run-deepvariant --model_type=WGS --ref=ref.fa --reads=reads.bam \
//	  --output_vcf=out.vcf [--num_shards=N] [--output_gvcf=out.g.vcf.gz]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"runvariant/internal/dispatch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a pipeline error to the process exit status: a failed
// stage propagates the child's own exit code, everything else is a usage
// error.
func exitCode(err error) int {
	var serr *dispatch.StageError
	if errors.As(err, &serr) && serr.ExitCode > 0 {
		return serr.ExitCode
	}
	return 1
}
