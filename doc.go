/*

Package bankloader loads the UCI Bank Marketing dataset into a BigQuery
table.

A run fetches the dataset, validates it against a static column contract,
prepares it into warehouse shape with the audit columns _row_id and
_load_timestamp, and replaces the destination table with a single
WRITE_TRUNCATE load job. A dataset that fails validation is rejected before
anything is written.

Getting started

	package main

	import (
		"context"
		"os"

		"go.nownabe.dev/bankloader"
	)

	func main() {
		ctx := context.Background()
		dest := bankloader.Destination{Project: "my-project", Dataset: "raw_data"}

		loader, err := bankloader.New(
			bankloader.WithPrettyLogging(),
			bankloader.WithSource(&bankloader.UCISource{DatasetID: bankloader.UCIDatasetID}),
			bankloader.WithDestination(dest),
			bankloader.WithSinkFactory(func(ctx context.Context) (bankloader.Sink, error) {
				return bankloader.NewBigQuerySink(ctx, dest.Project, os.Getenv("CREDENTIALS"))
			}),
		)
		if err != nil {
			panic(err)
		}

		if _, err := loader.Run(ctx); err != nil {
			os.Exit(1)
		}
	}

Preview

WithPreview prepares the data and renders the first rows without contacting
the warehouse.

Concurrency

Runs against the same destination table are not coordinated unless a Locker
is configured with WithLocker. StorageLock keeps one lock object per
destination in a Cloud Storage bucket.

A run that crashes leaves its lock object behind and later runs fail with
ErrLocked. Delete locks/<project>.<dataset>.<table>.lock from the bucket, or
set StorageLock.StaleAfter (--lock-stale-after) so that lock objects older
than that are taken over.

*/
package bankloader
