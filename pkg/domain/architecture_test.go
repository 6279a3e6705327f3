package domain

import (
	"os"
	"strings"
	"testing"

	"studyloader/testutil"
)

// TestDomainDoesNotImportInternal keeps the storage contract free of
// implementation packages so backends and the pipeline can both depend on it.
func TestDomainDoesNotImportInternal(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("cannot get working dir: %v", err)
	}
	testutil.AssertNoDirectImports(t, wd, testutil.InternalImportForbidden, "domain must stay implementation free")
}

func TestErrorMessages(t *testing.T) {
	nf := ErrNotFound{Entity: EntityStudy, ID: "brca_tcga"}
	if !strings.Contains(nf.Error(), "study brca_tcga not found") {
		t.Fatalf("unexpected message %q", nf.Error())
	}
	conflict := ErrConflict{Entity: EntityGeneticProfile, ID: "brca_tcga_mutations"}
	if conflict.Error() != "genetic_profile brca_tcga_mutations already exists" {
		t.Fatalf("unexpected message %q", conflict.Error())
	}
}
