package scene_test

import (
	"io"
	"testing"

	"github.com/wippyai/reveal-bridge/errors"
	"github.com/wippyai/reveal-bridge/i3df"
	"github.com/wippyai/reveal-bridge/i3df/i3dftest"
	"github.com/wippyai/reveal-bridge/renderables"
	"github.com/wippyai/reveal-bridge/scene"
)

func sampleFile() []byte {
	return i3dftest.EncodeScene(
		i3dftest.Root(),
		i3dftest.Child(1, 0),
		i3dftest.Child(2, 1),
	)
}

func TestDecode(t *testing.T) {
	sc, err := scene.Decode(sampleFile())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(sc.Sectors) != 3 {
		t.Fatalf("expected 3 sectors, got %d", len(sc.Sectors))
	}
	if sc.Root.Sector.Boxes.Attributes.Len() != 1 {
		t.Error("root should hold one box")
	}
	grand := sc.Root.Children[0].Children[0].Sector
	if grand.ID != 2 || grand.ParentID != 1 {
		t.Errorf("grandchild = %d/%d", grand.ID, grand.ParentID)
	}
	if grand.SphericalSegments.Attributes.Len() != 1 {
		t.Error("child geometry should be resolved against the root table")
	}
}

func TestDecode_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"child after root without table", i3dftest.EncodeScene(i3dftest.Sector{ID: 0}, i3dftest.Child(1, 0))},
		{"orphan", i3dftest.EncodeScene(i3dftest.Root(), i3dftest.Child(5, 4))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				data = []byte{}
			}
			sc, err := scene.Decode(data)
			if sc != nil {
				t.Fatal("expected nil scene")
			}
			if !errors.Is(err, errors.ErrSceneParser) {
				t.Fatalf("expected scene parser error, got %v", err)
			}
			if errors.StageOf(err) != errors.StageScene {
				t.Errorf("stage = %q", errors.StageOf(err))
			}
		})
	}
}

func TestDecode_MaxSectors(t *testing.T) {
	d := scene.NewDecoder(scene.I3DF, scene.Renderables, scene.WithMaxSectors(2))
	if _, err := d.Decode(sampleFile()); !errors.IsKind(err, errors.KindParser) {
		t.Fatalf("expected limit error, got %v", err)
	}
}

func TestDecode_InjectedCollaborators(t *testing.T) {
	parsed := &i3df.Scene{}
	converted := &renderables.Scene{}
	var sawScene *i3df.Scene

	d := scene.NewDecoder(
		scene.ParserFunc(func(io.ReadSeeker) (*i3df.Scene, error) { return parsed, nil }),
		scene.ConverterFunc(func(sc *i3df.Scene) *renderables.Scene {
			sawScene = sc
			return converted
		}),
	)
	out, err := d.Decode([]byte{1})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != converted || sawScene != parsed {
		t.Error("collaborators were not used")
	}
}

func TestDecode_BareRootAlone(t *testing.T) {
	sc, err := scene.Decode(i3dftest.EncodeScene(i3dftest.Sector{ID: 0}))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(sc.Sectors) != 1 || sc.Root == nil || sc.Root.Sector != sc.Sectors[0] {
		t.Fatalf("unexpected scene %+v", sc)
	}
}
