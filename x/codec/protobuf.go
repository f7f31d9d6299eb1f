package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/compose-network/courier/x/datatype"
)

// ProtobufType is the opt-in marker for generated messages. Add the method in
// a separate file of the generated package:
//
//	func (*Person) IsProtobufType() {}
//
// Messages without it cannot instantiate Protobuf.
type ProtobufType interface {
	proto.Message
	IsProtobufType()
}

// Protobuf encodes opted-in generated messages with the standard wire format.
// T is the generated struct, PT its pointer type.
type Protobuf[T any, PT interface {
	*T
	ProtobufType
}] struct {
	dt datatype.Descriptor
}

// NewProtobuf builds the codec for T. The descriptor carries the fully
// qualified message name and a FileDescriptorSet of the defining file and its
// imports, since the wire format is not self-describing.
func NewProtobuf[T any, PT interface {
	*T
	ProtobufType
}]() *Protobuf[T, PT] {
	desc := PT(new(T)).ProtoReflect().Descriptor()
	return &Protobuf[T, PT]{
		dt: datatype.New(datatype.EncodingProto, string(desc.FullName()), fileDescriptorSet(desc.ParentFile())),
	}
}

func (p *Protobuf[T, PT]) DataType() datatype.Descriptor { return p.dt }

func (p *Protobuf[T, PT]) Encode(v PT) ([]byte, error) {
	data, err := proto.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, p.dt.TypeName, err)
	}
	return data, nil
}

func (p *Protobuf[T, PT]) Decode(data []byte, observed datatype.Descriptor) (PT, error) {
	if !p.dt.Compatible(observed) {
		return nil, mismatch(p.dt, observed)
	}
	msg := PT(new(T))
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, p.dt.TypeName, err)
	}
	return msg, nil
}

// fileDescriptorSet serializes fd and its transitive imports, dependencies first.
func fileDescriptorSet(fd protoreflect.FileDescriptor) []byte {
	set := &descriptorpb.FileDescriptorSet{}
	seen := make(map[string]bool)

	var visit func(f protoreflect.FileDescriptor)
	visit = func(f protoreflect.FileDescriptor) {
		if seen[f.Path()] {
			return
		}
		seen[f.Path()] = true
		imports := f.Imports()
		for i := 0; i < imports.Len(); i++ {
			visit(imports.Get(i).FileDescriptor)
		}
		set.File = append(set.File, protodesc.ToFileDescriptorProto(f))
	}
	visit(fd)

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(set)
	if err != nil {
		return nil
	}
	return data
}
