package markdown

// DefaultMarkdown is the body of a newly created page. It shows off every
// construct of the dialect.
const DefaultMarkdown = `{
# This Is An Infobox
## I <3 infoboxes because they let me put information nice and concisely.
Label | Here is a Value
Another Label | Another Value :D
Label's Are Cool | Value's are cooler
### Important Grouping of Information
Organized Labels | Are much superior.
Final Label? | Yep. Final Label.
}

Lorem ipsum dolor sit amet, consectetur adipiscing elit. Phasellus quis arcu non felis commodo dictum. Nullam tincidunt orci nec porta imperdiet.

*This is some emphasized text.*

**This is some bold text.**

***This is bold emphasized text.***

~~This text was struck out.~~ Use ` + "`backticks`" + ` for inline code.

# Generic Sub Title

> A quotation stands on its own line.

This is what an unordered list would look like :D

- Suspendisse aliquet nisi mauris, a aliquam ligula blandit faucibus.
- Etiam tempor cursus porttitor.
- Donec hendrerit tristique massa, eget lacinia eros eleifend vel.

And this is what an ordered list looks like :)

1. Maecenas aliquet luctus augue vitae sagittis.
2. Mauris vel turpis vel eros imperdiet bibendum.
3. Quisque metus purus, ultrices vitae mi nec, mattis congue nisl.

---

## Simple Header

[
= Column = Another Column =
Cell | Another Cell
Second Row | Still Going
]

### This is a sub header!

In et elit vitae augue tincidunt scelerisque et nec nulla.
`
