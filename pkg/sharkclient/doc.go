// Package sharkclient is the HTTP client for talking to storage nodes ("sharks").
// It implements the narrow interfaces defined by the packages that call it
// (placement.HealthChecker, fanout.ReplicaWriter, object.ReplicaReader,
// mpu.PartWriter, mpu.FinalizeClient) rather than exposing one wide interface of
// its own, mirroring the teacher's S3ContentStore split across s3.go/s3_read.go/
// s3_write.go.
//
// Wire contract (one shark HTTP endpoint per placement.Node.BaseURL):
//
//	PUT  /v1/objects/{objectID}     (header X-Write-Id: <uuid>)  -> {"digest","bytes_written"}
//	GET  /v1/objects/{objectID}     (optional Range header)      -> raw bytes, 206 on partial
//	POST /mpu/v1/commit/{uploadID}  {"version":1,"nbytes","account","objectId","parts":[]}
//	                                                              -> digest in response header
//	                                                                 x-joyent-computed-content-md5
//	GET  /v1/health                                              -> {"available_bytes","utilization_pct"}
//
// A write's X-Write-Id disambiguates the several independent writes that share one
// objectID under a multipart upload (one per part); a solo write becomes the
// object's canonical blob on close, while the commit RPC tells the node to assemble
// the named part digests, in order, into the canonical blob.
package sharkclient
