package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/swampmonster/internal/parser"
)

func parseCSharp(t *testing.T, source string) *parser.FileModel {
	t.Helper()
	file, err := NewCSharpParser().Parse("Sample.cs", []byte(source))
	require.NoError(t, err)
	return file
}

func findMember(file *parser.FileModel, name string) (parser.MemberDecl, bool) {
	for _, m := range file.Members {
		if m.Name == name {
			return m, true
		}
	}
	return parser.MemberDecl{}, false
}

func findBinding(file *parser.FileModel, name string) *parser.Binding {
	var found *parser.Binding
	for i := range file.Bindings {
		if file.Bindings[i].Name == name {
			found = &file.Bindings[i]
		}
	}
	return found
}

func TestCSharpExtractsTypesAndEventMembers(t *testing.T) {
	file := parseCSharp(t, `using System;
using Prism.Events;

namespace Demo.Contacts
{
  public class Contact : EntityBase, IDisposable
  {
    public event EventHandler<string> NameChanged;
    public EventHandler Saved;
    private string _name;

    public event EventHandler Custom
    {
      add { }
      remove { }
    }

    public string Name { get; set; }

    public void Dispose() { }
  }
}
`)

	assert.Equal(t, []string{"System", "Prism.Events"}, file.Usings)
	require.Len(t, file.Types, 1)
	contact := file.Types[0]
	assert.Equal(t, "Demo.Contacts.Contact", contact.FullName)
	assert.Equal(t, "class", contact.Kind)
	assert.Equal(t, []string{"EntityBase", "IDisposable"}, contact.Bases)

	want := map[string]parser.MemberKind{
		"NameChanged": parser.MemberEvent,
		"Saved":       parser.MemberField,
		"_name":       parser.MemberField,
		"Custom":      parser.MemberEvent,
		"Name":        parser.MemberProperty,
		"Dispose":     parser.MemberMethod,
	}
	for name, kind := range want {
		m, ok := findMember(file, name)
		require.True(t, ok, "member %s not found in %+v", name, file.Members)
		assert.Equal(t, kind, m.Kind, name)
		assert.Equal(t, "Demo.Contacts.Contact", m.Owner, name)
		assert.Equal(t, "Contact", m.OwnerName, name)
	}

	nameChanged, _ := findMember(file, "NameChanged")
	assert.Equal(t, "EventHandler<string>", nameChanged.TypeName)
	assert.Equal(t, 8, nameChanged.Line)
}

func TestCSharpFileScopedNamespace(t *testing.T) {
	file := parseCSharp(t, `namespace Demo.Flat;

public sealed class Notice
{
}
`)
	assert.Equal(t, "Demo.Flat", file.Namespace)
	require.Len(t, file.Types, 1)
	assert.Equal(t, "Demo.Flat.Notice", file.Types[0].FullName)
}

func TestCSharpRecordsMemberOccurrences(t *testing.T) {
	file := parseCSharp(t, `namespace Demo
{
  public class Watcher
  {
    private Contact _contact;

    public void Start()
    {
      _contact.NameChanged += OnNameChanged;
    }

    private void OnNameChanged(object sender, string name) { }
  }
}
`)

	var found bool
	for _, occ := range file.Occurrences {
		if occ.Name != "NameChanged" {
			continue
		}
		found = true
		assert.True(t, occ.Member, "member access occurrence")
		assert.Equal(t, parser.ExprIdentifier, occ.Receiver.Kind)
		assert.Equal(t, "_contact", occ.Receiver.Name)
		assert.Equal(t, "Demo.Watcher", occ.Enclosing)
	}
	assert.True(t, found, "NameChanged occurrence in %+v", file.Occurrences)

	binding := findBinding(file, "_contact")
	require.NotNil(t, binding)
	assert.Equal(t, "Contact", binding.TypeName)
	assert.Equal(t, "Demo.Watcher", binding.Scope)
}

func TestCSharpCallSites(t *testing.T) {
	file := parseCSharp(t, `using Prism.Events;

namespace Demo
{
  public class Sender
  {
    public void Send(IEventAggregator agg)
    {
      var evt = agg.GetEvent<PingEvent>();
      agg.GetEvent<PingEvent>().Publish(new Ping(), 2);
    }
  }
}
`)

	var getEvents, publishes int
	for _, call := range file.Calls {
		switch call.Method {
		case "GetEvent":
			getEvents++
			assert.Equal(t, []string{"PingEvent"}, call.TypeArgs)
			assert.Equal(t, parser.ExprIdentifier, call.Receiver.Kind)
			assert.Equal(t, "agg", call.Receiver.Name)
		case "Publish":
			publishes++
			assert.Equal(t, 2, call.ArgCount)
			assert.Equal(t, parser.ExprCall, call.Receiver.Kind)
			require.NotNil(t, call.Receiver.Call)
			assert.Equal(t, "GetEvent", call.Receiver.Call.Method)
		}
	}
	assert.Equal(t, 2, getEvents)
	assert.Equal(t, 1, publishes)

	evt := findBinding(file, "evt")
	require.NotNil(t, evt)
	require.NotNil(t, evt.Init)
	assert.Equal(t, "GetEvent", evt.Init.Method)
}

func TestDefaultRegistryHandlesCSharp(t *testing.T) {
	p, ok := NewDefaultRegistry().GetParserForFile("Program.CS")
	require.True(t, ok)
	assert.Equal(t, "csharp", p.Language())
}
