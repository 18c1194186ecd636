/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: services_test.go
Description: Tests for the service extractor. Covers client signature capture,
metadata literals, result-window response inference, wrapper aliasing, default
signatures, and merge behavior on re-discovery.
*/

package recovery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/thrift-miner/pkg/idl"
	"github.com/kleascm/thrift-miner/pkg/recovery"
)

const talkClientSource = `
public class TalkService$Client implements org.apache.thrift.TServiceClient {
    public final SendMessageResponse sendMessage(MessageRequest request) throws TalkException {
        b("sendMessage");
        return null;
    }
    public final void noop() {
        b("noop");
    }
}
`

func extractServices(t *testing.T, ctx *recovery.Context, files map[string]string) {
	t.Helper()
	c := loadCorpus(t, files)
	require.NoError(t, recovery.NewServiceExtractor(ctx, testLogger()).Extract(c))
}

func TestServiceClientSignatures(t *testing.T) {
	ctx := recovery.NewContext()
	extractServices(t, ctx, map[string]string{"a.java": talkClientSource})

	svc := ctx.Services["TalkService"]
	require.NotNil(t, svc)
	require.Len(t, svc.Methods, 2)

	byName := make(map[string]*idl.Method)
	for _, m := range svc.Methods {
		byName[m.Name] = m
	}

	send := byName["sendMessage"]
	require.NotNil(t, send)
	assert.Equal(t, "MessageRequest", send.ArgType)
	assert.Equal(t, "SendMessageResponse", send.RetType)

	// No signature evidence beyond the tag: documented defaults
	noop := byName["noop"]
	require.NotNil(t, noop)
	assert.Equal(t, "binary", noop.ArgType)
	assert.Equal(t, "void", noop.RetType)
}

func TestServiceRediscoveryMergesWithoutSuffix(t *testing.T) {
	ctx := recovery.NewContext()
	extractServices(t, ctx, map[string]string{
		"a.java": talkClientSource,
		"b.java": talkClientSource,
	})

	assert.Len(t, ctx.Services, 1)
	svc := ctx.Services["TalkService"]
	require.NotNil(t, svc)
	assert.Len(t, svc.Methods, 2)
	assert.Nil(t, ctx.Services["TalkService_2"])
}

func TestServiceMetadataLiterals(t *testing.T) {
	ctx := recovery.NewContext()
	extractServices(t, ctx, map[string]string{
		"j.java": `
public class j {
    public static final String NAME = "com.linecorp.square.SquareServiceClient";
    public void dispatch() {
        String m = "approveSquareMembers";
        m = "getSquare";
    }
}
`,
	})

	svc := ctx.Services["SquareService"]
	require.NotNil(t, svc)
	require.Len(t, svc.Methods, 2)

	// Sorted merge order, all defaults
	assert.Equal(t, "approveSquareMembers", svc.Methods[0].Name)
	assert.Equal(t, "getSquare", svc.Methods[1].Name)
	for _, m := range svc.Methods {
		assert.Equal(t, "binary", m.ArgType)
		assert.Equal(t, "void", m.RetType)
	}
}

func TestServiceResponseByNameInference(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["GetProfileResponse"] = &idl.Struct{Name: "GetProfileResponse"}
	ctx.Register("GetProfileResponse")

	extractServices(t, ctx, map[string]string{
		"qc4.java": `
public class qc4 implements org.apache.thrift.TBase {
    class getProfile_result {
    }
}
`,
	})

	svc := ctx.Services["qc4"]
	require.NotNil(t, svc)
	require.Len(t, svc.Methods, 1)
	m := svc.Methods[0]
	assert.Equal(t, "getProfile", m.Name)
	assert.Equal(t, "GetProfileResponse", m.RetType)
	assert.Equal(t, "binary", m.ArgType)
}

func TestServiceResultWindowExceptions(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["TalkException"] = &idl.Struct{Name: "TalkException"}
	ctx.ExceptionStructs["TalkException"] = struct{}{}
	ctx.EmittedExceptionNames["TalkException"] = struct{}{}
	ctx.Register("TalkException")
	ctx.Structs["SendChatResponse"] = &idl.Struct{Name: "SendChatResponse"}
	ctx.Register("SendChatResponse")

	extractServices(t, ctx, map[string]string{
		"rw.java": `
public class rw implements org.apache.thrift.TBase {
    class sendChat_result {
        public SendChatResponse success;
        public TalkException e;
    }
}
`,
	})

	svc := ctx.Services["rw"]
	require.NotNil(t, svc)
	require.Len(t, svc.Methods, 1)
	m := svc.Methods[0]
	assert.Equal(t, "SendChatResponse", m.RetType)
	assert.Equal(t, []string{"TalkException"}, m.Exceptions)
}

func TestServiceWrapperAliases(t *testing.T) {
	ctx := recovery.NewContext()
	ctx.Structs["ka2"] = &idl.Struct{Name: "ka2"}
	ctx.Register("ka2")

	extractServices(t, ctx, map[string]string{
		"ka2.java": `
public class ka2 implements org.apache.thrift.TBase {
    public MessageRequest request;
    public String toString() {
        return new StringBuilder("sendMessage_args(").toString();
    }
}
`,
	})

	assert.Equal(t, "SendMessageRequest", ctx.AliasMap["ka2"])
}

func TestServiceNameNormalization(t *testing.T) {
	ctx := recovery.NewContext()
	extractServices(t, ctx, map[string]string{
		"ChannelClientImpl.java": `
public class ChannelClientImpl {
    public final void approveChannelAndReturnToken() {
        b("approveChannelAndReturnToken");
    }
}
`,
	})

	// ClientImpl suffix resolves to a Service name
	svc := ctx.Services["ChannelService"]
	require.NotNil(t, svc)
	require.Len(t, svc.Methods, 1)
	assert.Equal(t, "approveChannelAndReturnToken", svc.Methods[0].Name)
}
