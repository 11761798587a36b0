package headermapper

// Package headermapper bridges header representations between gateway-style
// transports, net/http and gRPC.
//
// # Header Normalization
//
// Gateways such as API proxies deliver headers as a flat mapping (one value
// per name), while http.Header and metadata.MD hold a list of values per
// name. Flatten and Expand convert between the two:
//
//	flat := headermapper.Flatten(resp.Header(), headermapper.TransportManaged)
//	expanded := headermapper.Expand(map[string]string{"Accept": "a,b"})
//
// Flatten joins multiple values with ValueSeparator in order and drops empty
// names, empty value lists and names rejected by a HeaderFilter. Expand wraps
// each value in a single element list and never splits on the separator, so
// the two are not exact inverses. Both return immutable snapshots.
//
// # Gateway Adapter
//
// Adapter serves proxy-integration requests with any http.Handler:
//
//	adapter := headermapper.NewAdapter(
//		headermapper.WithResponseFilter(headermapper.Exclude("Set-Cookie")),
//	)
//	resp, err := adapter.Serve(ctx, mux, gatewayRequest)
//
// # gRPC-Gateway Mapping
//
//	mapper := headermapper.NewBuilder().
//		AddIncomingMapping("Authorization", "authorization").
//		AddBidirectionalMapping("X-Request-ID", "request-id").
//		Build()
//
//	mux := headermapper.CreateGatewayMux(mapper)
//
// Incoming headers are flattened before they become metadata, so a header
// sent twice reaches the service as one joined value. Outgoing metadata with
// several values is joined the same way into the response header.
//
// Header values can be transformed during mapping:
//
//	mapper := headermapper.NewBuilder().
//		AddIncomingMapping("authorization", "auth-token").
//		WithTransform(headermapper.ChainTransforms(
//			headermapper.TrimSpace,
//			headermapper.RemovePrefix("Bearer "),
//		)).
//		Build()
//
// The interceptors give direct gRPC callers the same joined, defaulted view:
//
//	grpcServer := grpc.NewServer(
//		grpc.UnaryInterceptor(mapper.UnaryServerInterceptor()),
//		grpc.StreamInterceptor(mapper.StreamServerInterceptor()),
//	)
