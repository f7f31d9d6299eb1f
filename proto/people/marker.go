package peoplepb

// IsProtobufType opts Person into the typed proto codec.
func (*Person) IsProtobufType() {}
