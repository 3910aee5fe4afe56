package i3df

import "fmt"

// loader resolves coded indices against an attribute table.
type loader struct {
	t   *AttributeTable
	dec *FibonacciDecoder
}

func lookup[T any](l *loader, arr []T, name string) (T, error) {
	var zero T
	idx, err := l.dec.Next()
	if err != nil {
		return zero, err
	}
	if idx >= uint64(len(arr)) {
		return zero, fmt.Errorf("%w: %s[%d] of %d", ErrIndexOutOfRange, name, idx, len(arr))
	}
	return arr[idx], nil
}

func (l *loader) float(arr []float32, name string) (float32, error) {
	return lookup(l, arr, name)
}

func (l *loader) vector(x, y, z []float32, name string) (Vector3, error) {
	var v Vector3
	var err error
	if v.X, err = l.float(x, name+".x"); err != nil {
		return v, err
	}
	if v.Y, err = l.float(y, name+".y"); err != nil {
		return v, err
	}
	v.Z, err = l.float(z, name+".z")
	return v, err
}

func (l *loader) texture() (*Texture, error) {
	idx, err := l.dec.Next()
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return nil, nil
	}
	if idx > uint64(len(l.t.Textures)) {
		return nil, fmt.Errorf("%w: texture[%d] of %d", ErrIndexOutOfRange, idx-1, len(l.t.Textures))
	}
	tex := l.t.Textures[idx-1]
	return &tex, nil
}

func (l *loader) load(p *Primitive, prop Property) error {
	t := l.t
	var err error
	switch prop {
	case PropTreeIndex:
		p.TreeIndex, err = l.dec.Next()
	case PropTriangleOffset:
		p.TriangleOffset, err = l.dec.Next()
	case PropTriangleCount:
		p.TriangleCount, err = l.dec.Next()
	case PropColor:
		var idx uint64
		if idx, err = l.dec.Next(); err != nil {
			return err
		}
		if idx == 0 {
			p.Color = DefaultColor
			return nil
		}
		if idx > uint64(len(t.Colors)) {
			return fmt.Errorf("%w: color[%d] of %d", ErrIndexOutOfRange, idx-1, len(t.Colors))
		}
		p.Color = t.Colors[idx-1]
	case PropSize:
		p.Size, err = l.float(t.Sizes, "size")
	case PropCenter:
		p.Center, err = l.vector(t.CenterX, t.CenterY, t.CenterZ, "center")
	case PropDelta:
		p.Delta, err = l.vector(t.Deltas, t.Deltas, t.Deltas, "delta")
	case PropNormal:
		p.Normal, err = lookup(l, t.Normals, "normal")
	case PropCapNormal:
		p.CapNormal, err = lookup(l, t.Normals, "normal")
	case PropHeight:
		p.Height, err = l.float(t.Heights, "height")
	case PropRadiusA:
		p.RadiusA, err = l.float(t.Radii, "radius")
	case PropRadiusB:
		p.RadiusB, err = l.float(t.Radii, "radius")
	case PropThickness:
		p.Thickness, err = l.float(t.Radii, "radius")
	case PropRotationAngle:
		p.RotationAngle, err = l.float(t.Angles, "angle")
	case PropArcAngle:
		p.ArcAngle, err = l.float(t.Angles, "angle")
	case PropSlopeA:
		p.SlopeA, err = l.float(t.Angles, "angle")
	case PropSlopeB:
		p.SlopeB, err = l.float(t.Angles, "angle")
	case PropZAngleA:
		p.ZAngleA, err = l.float(t.Angles, "angle")
	case PropZAngleB:
		p.ZAngleB, err = l.float(t.Angles, "angle")
	case PropRotation3:
		p.Rotation, err = l.vector(t.Angles, t.Angles, t.Angles, "angle")
	case PropTranslation:
		p.Translation, err = l.vector(t.TranslationX, t.TranslationY, t.TranslationZ, "translation")
	case PropScale:
		p.Scale, err = l.vector(t.ScaleX, t.ScaleY, t.ScaleZ, "scale")
	case PropFileID:
		p.FileID, err = lookup(l, t.FileIDs, "fileId")
	case PropDiffuseTexture:
		p.DiffuseTexture, err = l.texture()
	case PropNormalTexture:
		p.NormalTexture, err = l.texture()
	case PropBumpTexture:
		p.BumpTexture, err = l.texture()
	default:
		err = fmt.Errorf("no loader for %s", prop)
	}
	return err
}
