package config

import "testing"

func settingsResource(outputRoot string) Resource[SettingsSpec] {
	return Resource[SettingsSpec]{
		Path: "settings.yaml",
		Spec: SettingsSpec{Output: OutputSettings{RootDirectory: outputRoot}},
	}
}

func TestValidateRequiresOutputRootDirectory(t *testing.T) {
	cfg := &LoadedConfig{Settings: Resource[SettingsSpec]{Path: "settings.yaml"}}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error when output.rootDirectory is empty")
	}
}

func TestValidateRejectsVariableWithoutNamedCapture(t *testing.T) {
	cfg := &LoadedConfig{
		Settings: settingsResource("/tmp/out"),
		Variables: []Resource[VariableSpec]{
			{Metadata: ObjectMeta{Name: "vendor"}, Spec: VariableSpec{Pattern: `Vendor: (\w+)`}, Path: "variables/vendor.yaml"},
		},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for a pattern missing its own-named capture group")
	}
}

func TestValidateAcceptsVariableWithMatchingCapture(t *testing.T) {
	cfg := &LoadedConfig{
		Settings: settingsResource("/tmp/out"),
		Variables: []Resource[VariableSpec]{
			{Metadata: ObjectMeta{Name: "vendor"}, Spec: VariableSpec{Pattern: `Vendor: (?P<vendor>\w+)`}, Path: "variables/vendor.yaml"},
		},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsLocalSourceAtOutputRoot(t *testing.T) {
	cfg := &LoadedConfig{
		Settings: settingsResource("/data/out"),
		Sources: []Resource[ImportSourceSpec]{
			{Metadata: ObjectMeta{Name: "loop"}, Path: "sources/loop.yaml",
				Spec: ImportSourceSpec{Type: SourceTypeLocal, Local: &LocalSourceConfig{Path: "/data/out"}}},
		},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for a local source pointed at the output root")
	}
}

func TestValidateRejectsDuplicateLocalSourcePaths(t *testing.T) {
	cfg := &LoadedConfig{
		Settings: settingsResource("/data/out"),
		Sources: []Resource[ImportSourceSpec]{
			{Metadata: ObjectMeta{Name: "a"}, Path: "sources/a.yaml",
				Spec: ImportSourceSpec{Type: SourceTypeLocal, Local: &LocalSourceConfig{Path: "/data/inbox"}}},
			{Metadata: ObjectMeta{Name: "b"}, Path: "sources/b.yaml",
				Spec: ImportSourceSpec{Type: SourceTypeLocal, Local: &LocalSourceConfig{Path: "/data/inbox"}}},
		},
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for two local sources scanning the same directory")
	}
}

func TestValidateAcceptsDistinctLocalSourcePaths(t *testing.T) {
	cfg := &LoadedConfig{
		Settings: settingsResource("/data/out"),
		Sources: []Resource[ImportSourceSpec]{
			{Metadata: ObjectMeta{Name: "a"}, Path: "sources/a.yaml",
				Spec: ImportSourceSpec{Type: SourceTypeLocal, Local: &LocalSourceConfig{Path: "/data/inbox-a"}}},
			{Metadata: ObjectMeta{Name: "b"}, Path: "sources/b.yaml",
				Spec: ImportSourceSpec{Type: SourceTypeLocal, Local: &LocalSourceConfig{Path: "/data/inbox-b"}}},
		},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
