// Package torchload reads TorchScript-style model containers: ZIP
// archives of named records holding pickled object graphs and raw tensor
// storages. It reconstructs the saved module with structural fidelity —
// attribute values, shared and cyclic references, and tensor payloads —
// and exposes the result as a typed object graph.
//
// Callers describe the types a container may reference with a Registry
// (or any Loader), then load:
//
//	reg := torchload.NewRegistry()
//	reg.Register(&torchload.Class{
//	    Name: "__torch__.Linear",
//	    Attributes: []torchload.Attribute{
//	        {Name: "weight", Type: torchload.TensorT},
//	        {Name: "bias", Type: torchload.OptionalOf(torchload.TensorT)},
//	    },
//	})
//
//	m, err := torchload.LoadFile("model.pt", torchload.WithTypeLoader(reg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w, _ := m.Attr("weight")
//	fmt.Println(w.Tensor().Shape())
//
// A class may carry a custom restoration method (SetState); containers
// recording such types restore through it, with the recorded state's
// container type tags narrowed to the method's declared parameter type
// first and every non-optional attribute validated afterwards. Classes
// without one restore by attribute-name assignment from the recorded
// state mapping.
package torchload
